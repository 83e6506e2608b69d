// Package catalog holds the static list of purchasable AI-tool offerings.
// Base prices are fixed here; effective prices merge in the admin override
// table at read time.
package catalog

import "github.com/hzrede/studio/internal/model"

// PremiumID is the distinguished all-access offering: purchasing it is
// equivalent to purchasing every other offering at once.
const PremiumID = "premium"

var offerings = []model.Offering{
	{ID: "banners", Name: "IA de Banners", BasePrice: 6.00, Description: "Crie banners profissionais para suas campanhas."},
	{ID: "capas", Name: "IA de Capas", BasePrice: 6.00, Description: "Designs de capas para redes sociais e vídeos."},
	{ID: "fotos-perfil", Name: "IA de Fotos de Perfil", BasePrice: 6.00, Description: "Gere fotos de perfil únicas e atraentes."},
	{ID: "artes-gerais", Name: "IA de Artes Gerais", BasePrice: 6.00, Description: "Qualquer tipo de arte que você possa imaginar."},
	{ID: "thumbnails", Name: "IA de Thumbnails", BasePrice: 6.00, Description: "Crie thumbnails de alto impacto para seus vídeos."},
	{ID: "cartoes-digitais", Name: "IA de Cartões Digitais", BasePrice: 6.00, Description: "Cartões de visita digitais e interativos."},
	{ID: "posts", Name: "IA de Posts", BasePrice: 6.00, Description: "Designs de posts para Instagram, Facebook e mais."},
	{ID: "logotipos", Name: "IA de Logotipos", BasePrice: 6.00, Description: "Crie logotipos memoráveis para sua marca."},
	{ID: PremiumID, Name: "IA Premium Completa", BasePrice: 39.90, Description: "Acesso total a todas as IAs e funcionalidades avançadas."},
}

// Offerings returns the full catalog in display order.
func Offerings() []model.Offering {
	out := make([]model.Offering, len(offerings))
	copy(out, offerings)
	return out
}

// ByID returns the offering with the given id, or nil if unknown.
func ByID(id string) *model.Offering {
	for i := range offerings {
		if offerings[i].ID == id {
			o := offerings[i]
			return &o
		}
	}
	return nil
}

// IsKnown reports whether id names a catalog offering.
func IsKnown(id string) bool {
	return ByID(id) != nil
}

// AllIDs returns every offering id, premium included. This is the set a
// premium purchase expands to.
func AllIDs() []string {
	ids := make([]string, len(offerings))
	for i, o := range offerings {
		ids[i] = o.ID
	}
	return ids
}

// ExpandPurchase returns the set of offering ids a purchase of id grants:
// the full catalog for premium, otherwise just the offering itself.
func ExpandPurchase(id string) []string {
	if id == PremiumID {
		return AllIDs()
	}
	return []string{id}
}

// CurrentPrices returns the effective price per offering id: the base
// price unless an admin override is present.
func CurrentPrices(overrides map[string]float64) map[string]float64 {
	prices := make(map[string]float64, len(offerings))
	for _, o := range offerings {
		if p, ok := overrides[o.ID]; ok {
			prices[o.ID] = p
		} else {
			prices[o.ID] = o.BasePrice
		}
	}
	return prices
}
