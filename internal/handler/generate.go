package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hzrede/studio/internal/auth"
	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/imagegen"
)

type GenerateHandler struct {
	svc    *entitlement.Service
	gen    imagegen.Generator
	logger *slog.Logger
}

func NewGenerateHandler(svc *entitlement.Service, gen imagegen.Generator, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{svc: svc, gen: gen, logger: logger}
}

// Generate runs one gated image generation. The entitlement check happens
// first; a generation failure afterwards leaves all state untouched.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "image generation not configured")
		return
	}

	var req struct {
		OfferingID string `json:"offering_id"`
		Prompt     string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !catalog.IsKnown(req.OfferingID) {
		writeError(w, http.StatusBadRequest, "unknown offering")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	user, err := h.svc.ActiveUser(sess)
	if err != nil {
		h.logger.Error("resolve active user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeServiceError(w, entitlement.ErrNotFound)
		return
	}
	if !h.svc.HasAccess(user, req.OfferingID) {
		writeServiceError(w, entitlement.ErrAccessDenied)
		return
	}

	result, err := h.gen.Generate(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, imagegen.ErrNoImage) {
			writeError(w, http.StatusBadGateway, "no image produced, try a different prompt")
			return
		}
		h.logger.Error("generate image", "error", err)
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"image":     base64.StdEncoding.EncodeToString(result.Data),
		"mime_type": result.MimeType,
	})
}
