package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/auth"
	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/email"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/websocket"
)

// PixConfig holds the static payment artifacts shown on the pix screen.
// There is no live gateway; the purchase itself is a local simulation.
type PixConfig struct {
	CopyPaste string
	QRCodeURL string
}

type PurchaseHandler struct {
	svc    *entitlement.Service
	email  *email.Client
	pix    PixConfig
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewPurchaseHandler(svc *entitlement.Service, ec *email.Client, pix PixConfig, hub *websocket.Hub, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, email: ec, pix: pix, hub: hub, logger: logger}
}

// Purchase grants the offering to the session's active user and appends
// the ledger entry. The owner notification is best-effort: a failed email
// never fails the purchase.
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfferingID string `json:"offering_id"`
		Method     string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	user, attempt, err := h.svc.Purchase(sess, req.OfferingID, req.Method)
	if err != nil {
		if !errors.Is(err, entitlement.ErrNotFound) && !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("purchase", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	if offering := catalog.ByID(req.OfferingID); offering != nil {
		if err := h.email.SendPurchaseNotice(user, offering, attempt); err != nil {
			h.logger.Error("send purchase notice", "error", err)
		}
	}

	h.hub.Broadcast(websocket.NewMessage("user", "updated", user.ID, nil))
	h.hub.Broadcast(websocket.NewMessage("payment", "created", attempt.ID, nil))

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"attempt": attempt,
	})
}

// PixInfo returns the static QR image URL and copy-paste token.
func (h *PurchaseHandler) PixInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"copy_paste":  h.pix.CopyPaste,
		"qr_code_url": h.pix.QRCodeURL,
	})
}
