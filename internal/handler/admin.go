package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/admin"
	"github.com/hzrede/studio/internal/auth"
	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/store"
	"github.com/hzrede/studio/internal/websocket"
)

type AdminHandler struct {
	admin    *admin.Service
	users    *store.UserStore
	payments *store.PaymentStore
	prices   *store.PriceStore
	settings *store.SettingsStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewAdminHandler(as *admin.Service, us *store.UserStore, ps *store.PaymentStore, prs *store.PriceStore, sts *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:    as,
		users:    us,
		payments: ps,
		prices:   prs,
		settings: sts,
		hub:      hub,
		logger:   logger,
	}
}

// Login checks the shared admin code and flags the session on success.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	ok, err := h.admin.LoginAdmin(sess.ID, req.Code)
	if err != nil {
		h.logger.Error("admin login", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid access code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Users returns every registered user with trial state and purchases.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Attempts returns the payment ledger newest-first for display.
func (h *AdminHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.payments.ListDesc()
	if err != nil {
		h.logger.Error("list payment attempts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// Revenue aggregates successful attempts at today's prices. Historical
// figures therefore shift when a price is edited; see DESIGN.md.
func (h *AdminHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.prices.Overrides()
	if err != nil {
		h.logger.Error("load price overrides", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := h.payments.Revenue(catalog.CurrentPrices(overrides))
	if err != nil {
		h.logger.Error("compute revenue", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"revenue": total})
}

// UpdatePrice overrides one offering's current price.
func (h *AdminHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.admin.UpdatePackagePrice(id, req.Price); err != nil {
		if !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("update price", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("price", "updated", id, map[string]any{"price": req.Price}))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UpdateMessage edits one site message.
func (h *AdminHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.admin.UpdateSiteMessage(key, req.Value); err != nil {
		if !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("update message", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("settings", "updated", key, nil))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UpdateTrialDuration changes the length of future trials only.
func (h *AdminHandler) UpdateTrialDuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hours int `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.admin.UpdateTrialDuration(req.Hours); err != nil {
		if !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("update trial duration", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("settings", "updated", "trial_duration_hours", nil))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UpdatePromotion sets the promotional banner text.
func (h *AdminHandler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.admin.UpdatePromotionMessage(req.Text); err != nil {
		h.logger.Error("update promotion", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("settings", "updated", "promotion_message", nil))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Grant bypasses the purchase flow and adds a package to a user directly.
// No ledger entry is written.
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		OfferingID string `json:"offering_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.admin.GrantPackage(req.Email, req.OfferingID)
	if err != nil {
		if !errors.Is(err, entitlement.ErrNotFound) && !errors.Is(err, entitlement.ErrValidation) {
			h.logger.Error("grant package", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("user", "updated", user.ID, nil))
	writeJSON(w, http.StatusOK, user)
}
