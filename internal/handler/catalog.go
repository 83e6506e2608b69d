package handler

import (
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/store"
)

type CatalogHandler struct {
	prices *store.PriceStore
	logger *slog.Logger
}

func NewCatalogHandler(ps *store.PriceStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{prices: ps, logger: logger}
}

type catalogEntry struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price"`
	Price       float64 `json:"price"`
}

// List returns the catalog with effective prices (admin overrides applied).
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.prices.Overrides()
	if err != nil {
		h.logger.Error("load price overrides", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	current := catalog.CurrentPrices(overrides)

	offerings := catalog.Offerings()
	entries := make([]catalogEntry, len(offerings))
	for i, o := range offerings {
		entries[i] = catalogEntry{
			ID:          o.ID,
			Name:        o.Name,
			Description: o.Description,
			BasePrice:   o.BasePrice,
			Price:       current[o.ID],
		}
	}
	writeJSON(w, http.StatusOK, entries)
}
