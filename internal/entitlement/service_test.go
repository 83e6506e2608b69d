package entitlement

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hzrede/studio/internal/catalog"
	"github.com/hzrede/studio/internal/database"
	"github.com/hzrede/studio/internal/model"
	"github.com/hzrede/studio/internal/store"
)

type testEnv struct {
	db       *sql.DB
	users    *store.UserStore
	sessions *store.SessionStore
	payments *store.PaymentStore
	settings *store.SettingsStore
	svc      *Service
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		users:    store.NewUserStore(db),
		sessions: store.NewSessionStore(db),
		payments: store.NewPaymentStore(db),
		settings: store.NewSettingsStore(db),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewService(env.users, env.sessions, env.payments, env.settings, logger)
	return env
}

func (e *testEnv) newSession(t *testing.T) *model.Session {
	t.Helper()
	sess, err := e.sessions.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func (e *testEnv) freshSession(t *testing.T) *model.Session {
	t.Helper()
	sess, err := e.sessions.GetByToken(e.newSession(t).Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	return sess
}

func TestStartTrialNewUser(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}
	if !user.Trial.Active || !user.Trial.Used {
		t.Errorf("trial = %+v, want active and used", user.Trial)
	}
	if user.Trial.ExpiresAt == nil {
		t.Fatal("expected trial deadline")
	}
	got := user.Trial.ExpiresAt.Sub(*user.Trial.ActivatedAt)
	if got != 24*time.Hour {
		t.Errorf("trial length = %v, want 24h", got)
	}

	// The session now points at the user.
	reloaded, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.UserEmail == nil || *reloaded.UserEmail != "alice@example.com" {
		t.Errorf("session user = %v, want alice@example.com", reloaded.UserEmail)
	}
}

func TestStartTrialEmptyEmail(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	_, err := env.svc.StartTrial(sess.ID, "   ", "Alice")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestStartTrialUsedBlocks(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}
	if err := env.users.AddPackages(user.ID, []string{"banners"}); err != nil {
		t.Fatalf("add package: %v", err)
	}

	_, err = env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if !errors.Is(err, ErrTrialAlreadyUsed) {
		t.Fatalf("err = %v, want ErrTrialAlreadyUsed", err)
	}

	// The blocked attempt changed nothing.
	user, err = env.users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.Owns("banners") {
		t.Error("blocked trial attempt touched purchases")
	}
}

func TestStartTrialUsedBlocksAfterExpiry(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}

	// Force the trial overdue and sweep it out.
	past := time.Now().UTC().Add(-time.Minute)
	activated := past.Add(-24 * time.Hour)
	if err := env.users.ResetTrial(user.ID, user.Name, model.Trial{
		Active: true, ActivatedAt: &activated, ExpiresAt: &past, Used: true,
	}); err != nil {
		t.Fatalf("backdate trial: %v", err)
	}
	expired, err := env.svc.Sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != user.ID {
		t.Fatalf("expired = %v, want alice", expired)
	}

	// Used survives expiry, so a second trial still blocks.
	_, err = env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if !errors.Is(err, ErrTrialAlreadyUsed) {
		t.Fatalf("err = %v, want ErrTrialAlreadyUsed", err)
	}
}

func TestStartTrialPreservesPurchases(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}
	if err := env.users.AddPackages(user.ID, []string{"banners"}); err != nil {
		t.Fatalf("add package: %v", err)
	}
	// Clear the used flag so the trial can restart.
	if err := env.users.ResetTrial(user.ID, user.Name, model.Trial{}); err != nil {
		t.Fatalf("clear trial: %v", err)
	}

	user, err = env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("restart trial: %v", err)
	}
	if !user.Owns("banners") {
		t.Error("purchase lost across trial re-activation")
	}
}

func TestExpireTrialIdempotentAndDeadlineChecked(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}

	// Not yet due: nothing happens.
	if err := env.svc.ExpireTrial(user.ID); err != nil {
		t.Fatalf("expire trial: %v", err)
	}
	u, err := env.users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.Trial.Active {
		t.Fatal("trial expired before its deadline")
	}

	past := time.Now().UTC().Add(-time.Minute)
	if err := env.users.ResetTrial(user.ID, user.Name, model.Trial{
		Active: true, ActivatedAt: u.Trial.ActivatedAt, ExpiresAt: &past, Used: true,
	}); err != nil {
		t.Fatalf("backdate trial: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.svc.ExpireTrial(user.ID); err != nil {
			t.Fatalf("expire trial (call %d): %v", i+1, err)
		}
	}
	u, err = env.users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Trial.Active {
		t.Error("trial still active after deadline")
	}
	if !u.Trial.Used {
		t.Error("used flag lost on expiry")
	}
}

func TestExpireTrialUnknownUser(t *testing.T) {
	env := setupService(t)

	if err := env.svc.ExpireTrial("user_missing"); err != nil {
		t.Fatalf("expire trial: %v", err)
	}
}

func TestPurchaseGrantsAccess(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if _, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("start trial: %v", err)
	}
	sess, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}

	user, attempt, err := env.svc.Purchase(sess, "banners", model.MethodPix)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if !user.Owns("banners") {
		t.Error("purchased offering not owned")
	}
	if attempt.Status != model.PaymentSuccess || attempt.OfferingID != "banners" {
		t.Errorf("attempt = %+v", attempt)
	}

	// Access persists once the trial lapses.
	if err := env.users.DeactivateTrial(user.ID); err != nil {
		t.Fatalf("deactivate trial: %v", err)
	}
	user, err = env.users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !env.svc.HasAccess(user, "banners") {
		t.Error("no access to owned offering after trial end")
	}
	if env.svc.HasAccess(user, "capas") {
		t.Error("access to unowned offering after trial end")
	}
}

func TestPurchasePremiumGrantsEverything(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if _, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("start trial: %v", err)
	}
	sess, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}

	user, _, err := env.svc.Purchase(sess, catalog.PremiumID, model.MethodCard)
	if err != nil {
		t.Fatalf("purchase premium: %v", err)
	}
	for _, id := range catalog.AllIDs() {
		if !user.Owns(id) {
			t.Errorf("premium purchase did not grant %q", id)
		}
	}

	// One purchase, one ledger row.
	attempts, err := env.payments.List()
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(attempts))
	}
}

func TestPurchaseWithoutUser(t *testing.T) {
	env := setupService(t)
	sess := env.freshSession(t)

	_, _, err := env.svc.Purchase(sess, "banners", model.MethodPix)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	attempts, err := env.payments.List()
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Error("failed purchase wrote a ledger row")
	}
}

func TestPurchaseValidation(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if _, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("start trial: %v", err)
	}
	sess, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}

	if _, _, err := env.svc.Purchase(sess, "no-such-offering", model.MethodPix); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown offering: err = %v, want ErrValidation", err)
	}
	if _, _, err := env.svc.Purchase(sess, "banners", "barter"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown method: err = %v, want ErrValidation", err)
	}
}

func TestPurchaseRepeatAppendsLedgerOnly(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if _, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("start trial: %v", err)
	}
	sess, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}

	if _, _, err := env.svc.Purchase(sess, "banners", model.MethodPix); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	user, _, err := env.svc.Purchase(sess, "banners", model.MethodPix)
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	owned := 0
	for _, id := range user.PurchasedPackages {
		if id == "banners" {
			owned++
		}
	}
	if owned != 1 {
		t.Errorf("banners owned %d times, want 1", owned)
	}

	attempts, err := env.payments.List()
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Errorf("ledger rows = %d, want 2", len(attempts))
	}
}

func TestTrialGrantsAllOfferings(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}
	for _, id := range catalog.AllIDs() {
		if !env.svc.HasAccess(user, id) {
			t.Errorf("active trial denied %q", id)
		}
	}
}

func TestHasAccessNilUser(t *testing.T) {
	env := setupService(t)
	if env.svc.HasAccess(nil, "banners") {
		t.Error("nil user has access")
	}
}

func TestLoginExistingOnly(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if _, err := env.svc.Login(sess.ID, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("start trial: %v", err)
	}
	other := env.newSession(t)
	user, err := env.svc.Login(other.ID, "alice@example.com")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q", user.Email)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if _, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("start trial: %v", err)
	}
	if err := env.sessions.SetAdmin(sess.ID, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := env.svc.Logout(sess.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	reloaded, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.UserEmail != nil || reloaded.IsAdmin {
		t.Errorf("session not cleared: %+v", reloaded)
	}
}

func TestActiveUserDanglingPointer(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if err := env.sessions.SetUserEmail(sess.ID, "ghost@example.com"); err != nil {
		t.Fatalf("set user email: %v", err)
	}
	sess, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}

	user, err := env.svc.ActiveUser(sess)
	if err != nil {
		t.Fatalf("active user: %v", err)
	}
	if user != nil {
		t.Error("dangling pointer resolved to a user")
	}
}

func TestTrialDurationSettingApplies(t *testing.T) {
	env := setupService(t)
	sess := env.newSession(t)

	if err := env.settings.SetTrialDurationHours(2); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	user, err := env.svc.StartTrial(sess.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("start trial: %v", err)
	}
	got := user.Trial.ExpiresAt.Sub(*user.Trial.ActivatedAt)
	if got != 2*time.Hour {
		t.Errorf("trial length = %v, want 2h", got)
	}
}
