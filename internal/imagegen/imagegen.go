// Package imagegen wraps the external image-generation API. The rest of
// the system treats it as an opaque capability: a text prompt in, image
// bytes out, or an error.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoImage is returned when the upstream call succeeds but produces no
// usable image. Callers surface "no image produced" rather than a failure.
var ErrNoImage = errors.New("no image produced")

// Result is one generated image.
type Result struct {
	Data     []byte
	MimeType string
}

// Generator produces an image for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// Client generates images via the OpenAI images API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a generator. An empty model selects DALL-E 3.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// Generate requests a single image for the prompt. The first returned
// image wins; zero images yields ErrNoImage. No retries and no timeout
// beyond what ctx carries — a hung upstream call is the caller's wait.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("empty prompt: %w", ErrNoImage)
	}

	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	for _, img := range resp.Data {
		if img.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return &Result{Data: data, MimeType: "image/png"}, nil
	}

	return nil, ErrNoImage
}
