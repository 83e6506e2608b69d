package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/auth"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/push"
	"github.com/hzrede/studio/internal/store"
)

type PushHandler struct {
	svc     *entitlement.Service
	pushSvc *push.Service
	pushes  *store.PushStore
	logger  *slog.Logger
}

func NewPushHandler(svc *entitlement.Service, pushSvc *push.Service, ps *store.PushStore, logger *slog.Logger) *PushHandler {
	return &PushHandler{svc: svc, pushSvc: pushSvc, pushes: ps, logger: logger}
}

// Key returns the VAPID public key browsers need to subscribe.
func (h *PushHandler) Key(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"key": h.pushSvc.VAPIDPublicKey()})
}

// Subscribe registers the browser's push subscription under the session's
// active user, for trial-expiry notifications.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint and keys are required")
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

	sub, err := h.pushes.Create(user.Email, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}
