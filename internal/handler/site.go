package handler

import (
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/store"
)

type SiteHandler struct {
	settings *store.SettingsStore
	prices   *store.PriceStore
	logger   *slog.Logger
}

func NewSiteHandler(sts *store.SettingsStore, ps *store.PriceStore, logger *slog.Logger) *SiteHandler {
	return &SiteHandler{settings: sts, prices: ps, logger: logger}
}

// Get returns everything the public pages need in one call: site
// messages, the promotion banner, and current prices.
func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	messages, err := h.settings.Messages()
	if err != nil {
		h.logger.Error("load site messages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	promotion, err := h.settings.PromotionMessage()
	if err != nil {
		h.logger.Error("load promotion message", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	overrides, err := h.prices.Overrides()
	if err != nil {
		h.logger.Error("load price overrides", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":  messages,
		"promotion": promotion,
		"prices":    catalog.CurrentPrices(overrides),
	})
}
