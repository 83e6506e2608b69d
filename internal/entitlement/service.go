// Package entitlement implements the trial and purchase state machine: who
// may use which offering, how trials start and expire, and how purchases
// grant access.
package entitlement

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/model"
	"github.com/hzrede/studio/internal/store"
)

type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	payments *store.PaymentStore
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewService(us *store.UserStore, ss *store.SessionStore, ps *store.PaymentStore, sts *store.SettingsStore, logger *slog.Logger) *Service {
	return &Service{
		users:    us,
		sessions: ss,
		payments: ps,
		settings: sts,
		logger:   logger,
	}
}

// StartTrial activates the one-shot free trial for email and points the
// session at that user. A used trial blocks with ErrTrialAlreadyUsed and
// changes nothing. Re-activating a never-used trial on an existing email
// resets the trial fields but preserves any purchases.
func (s *Service) StartTrial(sessionID int64, email, name string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", ErrValidation)
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Trial.Used {
		return nil, ErrTrialAlreadyUsed
	}

	hours, err := s.settings.TrialDurationHours()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	trial := model.Trial{
		Active:      true,
		ActivatedAt: &now,
		ExpiresAt:   &expiresAt,
		Used:        true,
	}

	var user *model.User
	if existing != nil {
		if err := s.users.ResetTrial(existing.ID, name, trial); err != nil {
			return nil, err
		}
		user, err = s.users.GetByID(existing.ID)
	} else {
		user, err = s.users.Create("user_"+uuid.NewString(), email, name, trial)
	}
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SetUserEmail(sessionID, email); err != nil {
		return nil, err
	}

	s.logger.Info("trial started", "email", email, "expires_at", expiresAt)
	return user, nil
}

// HasAccess computes the entitlement decision: an active trial grants
// everything; otherwise the offering (or premium) must be owned.
func (s *Service) HasAccess(user *model.User, offeringID string) bool {
	if user == nil {
		return false
	}
	if user.Trial.Active {
		return true
	}
	if user.Owns(catalog.PremiumID) {
		return true
	}
	return user.Owns(offeringID)
}

// ExpireTrial deactivates the user's trial once its deadline has passed.
// Idempotent; the used flag is never cleared.
func (s *Service) ExpireTrial(userID string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil || !user.Trial.Active {
		return nil
	}
	if !user.TrialExpired(time.Now().UTC()) {
		return nil
	}
	if err := s.users.DeactivateTrial(userID); err != nil {
		return err
	}
	s.logger.Info("trial expired", "email", user.Email)
	return nil
}

// Sweep expires every overdue trial in the store and returns the affected
// users. Invoked by the periodic sweeper and safe to call at any time.
func (s *Service) Sweep() ([]*model.User, error) {
	due, err := s.users.ListExpiredActiveTrials(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	var expired []*model.User
	for _, user := range due {
		if err := s.users.DeactivateTrial(user.ID); err != nil {
			s.logger.Error("deactivate trial", "email", user.Email, "error", err)
			continue
		}
		expired = append(expired, user)
	}
	return expired, nil
}

// Purchase adds the offering (expanded for premium) to the session's
// active user and appends a success row to the ledger. Purchasing an
// already-owned offering changes nothing beyond the ledger entry.
func (s *Service) Purchase(sess *model.Session, offeringID, method string) (*model.User, *model.PaymentAttempt, error) {
	user, err := s.ActiveUser(sess)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, fmt.Errorf("no active user: %w", ErrNotFound)
	}
	if !catalog.IsKnown(offeringID) {
		return nil, nil, fmt.Errorf("unknown offering %q: %w", offeringID, ErrValidation)
	}
	if !model.ValidMethod(method) {
		return nil, nil, fmt.Errorf("unknown payment method %q: %w", method, ErrValidation)
	}

	if err := s.users.AddPackages(user.ID, catalog.ExpandPurchase(offeringID)); err != nil {
		return nil, nil, err
	}

	attempt, err := s.payments.Create(user.ID, offeringID, model.PaymentSuccess, method)
	if err != nil {
		return nil, nil, err
	}

	user, err = s.users.GetByID(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("package purchased", "email", user.Email, "offering", offeringID, "method", method)
	return user, attempt, nil
}

// Login points the session at an existing user. It never creates a user
// and never touches trial state.
func (s *Service) Login(sessionID int64, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", ErrValidation)
	}
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if err := s.sessions.SetUserEmail(sessionID, email); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout clears the session's user pointer and admin flag together.
func (s *Service) Logout(sessionID int64) error {
	return s.sessions.Clear(sessionID)
}

// ActiveUser resolves the session pointer to a user record. A missing
// pointer, or a pointer to an email no longer in the store, yields nil
// without error.
func (s *Service) ActiveUser(sess *model.Session) (*model.User, error) {
	if sess == nil || sess.UserEmail == nil {
		return nil, nil
	}
	return s.users.GetByEmail(*sess.UserEmail)
}
