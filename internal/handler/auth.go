package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/auth"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/store"
	"github.com/hzrede/studio/internal/websocket"
)

type AuthHandler struct {
	svc      *entitlement.Service
	settings *store.SettingsStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewAuthHandler(svc *entitlement.Service, ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, settings: ss, hub: hub, logger: logger}
}

// StartTrial activates the free trial for an email and binds it to the
// session. A used trial returns 409 with the admin-editable denial text.
func (h *AuthHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	user, err := h.svc.StartTrial(sess.ID, req.Email, req.Name)
	if err != nil {
		if errors.Is(err, entitlement.ErrTrialAlreadyUsed) {
			messages, merr := h.settings.Messages()
			if merr != nil {
				h.logger.Error("load site messages", "error", merr)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeError(w, http.StatusConflict, messages["trial_used"])
			return
		}
		if !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("start trial", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("user", "updated", user.ID, nil))
	writeJSON(w, http.StatusCreated, user)
}

// Login repoints the session at an existing user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	user, err := h.svc.Login(sess.ID, req.Email)
	if err != nil {
		if !errors.Is(err, entitlement.ErrNotFound) && !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("login", "error", err)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout clears the session's user pointer and admin flag together.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if err := h.svc.Logout(sess.ID); err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the session's active user (null when none or dangling) and
// the independent admin flag.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	user, err := h.svc.ActiveUser(sess)
	if err != nil {
		h.logger.Error("resolve active user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"is_admin": sess.IsAdmin,
	})
}

// ExpireTrial is the countdown callback: the client calls it when the
// displayed timer for the active user reaches zero. Idempotent, and a
// trial that is not actually overdue is left alone.
func (h *AuthHandler) ExpireTrial(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.ExpireTrial(user.ID); err != nil {
		h.logger.Error("expire trial", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("trial", "expired", user.ID, nil))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
