// Package admin implements the override layer: shared-secret admin login,
// price and message edits, trial duration changes, and direct grants that
// bypass the purchase flow.
package admin

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/crypto/bcrypt"

	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/entitlement"
	"github.com/hzrede/studio/internal/model"
	"github.com/hzrede/studio/internal/store"
)

// Config holds the shared secrets. CodeHash, when set, is a bcrypt hash
// and takes precedence over the plain Code.
type Config struct {
	Code      string
	CodeHash  string
	GroupCode string
}

type Service struct {
	cfg      Config
	users    *store.UserStore
	sessions *store.SessionStore
	settings *store.SettingsStore
	prices   *store.PriceStore
	logger   *slog.Logger
}

func NewService(cfg Config, us *store.UserStore, ss *store.SessionStore, sts *store.SettingsStore, ps *store.PriceStore, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		users:    us,
		sessions: ss,
		settings: sts,
		prices:   ps,
		logger:   logger,
	}
}

// LoginAdmin checks the supplied code and, on match, flags the session as
// admin. This is the entire authorization model: one shared secret, no
// per-admin identity.
func (s *Service) LoginAdmin(sessionID int64, code string) (bool, error) {
	if !s.verifyCode(code) {
		return false, nil
	}
	if err := s.sessions.SetAdmin(sessionID, true); err != nil {
		return false, err
	}
	s.logger.Info("admin login", "session_id", sessionID)
	return true, nil
}

func (s *Service) verifyCode(code string) bool {
	if s.cfg.CodeHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.CodeHash), []byte(code)) == nil
	}
	if s.cfg.Code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.Code), []byte(code)) == 1
}

// VerifyGroupCode checks the community-group access code. Stateless: a
// match does not mutate any session.
func (s *Service) VerifyGroupCode(code string) bool {
	if s.cfg.GroupCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.GroupCode), []byte(code)) == 1
}

// UpdatePackagePrice overrides the current price for a catalog offering.
func (s *Service) UpdatePackagePrice(offeringID string, price float64) error {
	if !catalog.IsKnown(offeringID) {
		return fmt.Errorf("unknown offering %q: %w", offeringID, entitlement.ErrValidation)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return fmt.Errorf("price must be a finite non-negative number: %w", entitlement.ErrValidation)
	}
	if err := s.prices.Set(offeringID, price); err != nil {
		return err
	}
	s.logger.Info("price updated", "offering", offeringID, "price", price)
	return nil
}

// GrantPackage adds the offering (expanded for premium) to the user's
// purchase set directly. No ledger entry is recorded.
func (s *Service) GrantPackage(email, offeringID string) (*model.User, error) {
	if !catalog.IsKnown(offeringID) {
		return nil, fmt.Errorf("unknown offering %q: %w", offeringID, entitlement.ErrValidation)
	}
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entitlement.ErrNotFound
	}
	if err := s.users.AddPackages(user.ID, catalog.ExpandPurchase(offeringID)); err != nil {
		return nil, err
	}
	s.logger.Info("package granted", "email", email, "offering", offeringID)
	return s.users.GetByID(user.ID)
}

// UpdateSiteMessage edits one of the user-facing messages.
func (s *Service) UpdateSiteMessage(key, value string) error {
	if !store.IsMessageKey(key) {
		return fmt.Errorf("unknown message key %q: %w", key, entitlement.ErrValidation)
	}
	return s.settings.SetMessage(key, value)
}

// UpdateTrialDuration changes the trial length for trials activated from
// now on. In-flight trials keep their already-computed deadline.
func (s *Service) UpdateTrialDuration(hours int) error {
	if hours <= 0 {
		return fmt.Errorf("trial duration must be positive: %w", entitlement.ErrValidation)
	}
	return s.settings.SetTrialDurationHours(hours)
}

// UpdatePromotionMessage sets the promotional banner text. Empty clears it.
func (s *Service) UpdatePromotionMessage(text string) error {
	return s.settings.SetPromotionMessage(text)
}
