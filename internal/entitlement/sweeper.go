package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hzrede/studio/internal/push"
	"github.com/hzrede/studio/internal/store"
	"github.com/hzrede/studio/internal/websocket"
)

// Sweeper runs the trial-expiry sweep once a minute, mirroring the
// client-side countdown so access lapses even when no request arrives.
type Sweeper struct {
	mu       sync.Mutex
	service  *Service
	pushSvc  *push.Service
	pushes   *store.PushStore
	settings *store.SettingsStore
	hub      *websocket.Hub
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweeper(svc *Service, pushSvc *push.Service, ps *store.PushStore, sts *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		service:  svc,
		pushSvc:  pushSvc,
		pushes:   ps,
		settings: sts,
		hub:      hub,
		interval: 60 * time.Second,
		logger:   logger,
	}
}

// Start begins the sweep loop. Call Stop to end it.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Sweeper) tick() {
	expired, err := s.service.Sweep()
	if err != nil {
		s.logger.Error("trial sweep", "error", err)
		return
	}
	for _, user := range expired {
		if s.hub != nil {
			s.hub.Broadcast(websocket.NewMessage("trial", "expired", user.ID, nil))
		}
		s.notify(user.Email)
	}
}

// notify web-pushes the configured trial-expired message to every browser
// registered for the email. Expired endpoints are pruned.
func (s *Sweeper) notify(email string) {
	if s.pushSvc == nil {
		return
	}
	subs, err := s.pushes.ListByEmail(email)
	if err != nil {
		s.logger.Error("list push subscriptions", "email", email, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	messages, err := s.settings.Messages()
	if err != nil {
		s.logger.Error("load site messages", "error", err)
		return
	}
	payload := push.Payload{
		Title: "HZ Studio",
		Body:  messages["trial_expired"],
		URL:   "/",
		Tag:   "trial-expired",
	}
	for _, sub := range subs {
		if err := s.pushSvc.Send(sub, payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				if derr := s.pushes.DeleteByEndpoint(sub.Endpoint); derr != nil {
					s.logger.Error("prune push subscription", "error", derr)
				}
				continue
			}
			s.logger.Error("send trial-expired push", "email", email, "error", err)
		}
	}
}
