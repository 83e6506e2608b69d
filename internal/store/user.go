package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hzrede/studio/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, email, name, trial_active, trial_activated_at, trial_expires_at, trial_used, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var activatedAt, expiresAt sql.NullTime
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.Trial.Active, &activatedAt, &expiresAt, &u.Trial.Used, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if activatedAt.Valid {
		u.Trial.ActivatedAt = &activatedAt.Time
	}
	if expiresAt.Valid {
		u.Trial.ExpiresAt = &expiresAt.Time
	}
	return &u, nil
}

// Create inserts a new user with the given trial state and an empty
// purchase set.
func (s *UserStore) Create(id, email, name string, trial model.Trial) (*model.User, error) {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, trial_active, trial_activated_at, trial_expires_at, trial_used, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, email, name, trial.Active, trial.ActivatedAt, trial.ExpiresAt, trial.Used, time.Now().UTC(), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.loadPackages(u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail looks a user up by their natural key. Exact match; no case
// folding.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if err := s.loadPackages(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) List() ([]*model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := s.loadPackages(u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// ResetTrial overwrites the user's trial fields and display name. Purchase
// rows are untouched, so re-activating a never-used trial preserves any
// prior purchases.
func (s *UserStore) ResetTrial(id, name string, trial model.Trial) error {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, trial_active = ?, trial_activated_at = ?, trial_expires_at = ?, trial_used = ?, updated_at = ? WHERE id = ?`,
		name, trial.Active, trial.ActivatedAt, trial.ExpiresAt, trial.Used, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("reset trial: %w", err)
	}
	return nil
}

// DeactivateTrial clears the active flag only. trial_used is never touched
// here, keeping it monotonic. Idempotent.
func (s *UserStore) DeactivateTrial(id string) error {
	_, err := s.db.Exec(
		`UPDATE users SET trial_active = 0, updated_at = ? WHERE id = ? AND trial_active = 1`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("deactivate trial: %w", err)
	}
	return nil
}

// ListExpiredActiveTrials returns users whose trial is still flagged active
// but whose deadline has passed.
func (s *UserStore) ListExpiredActiveTrials(now time.Time) ([]*model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE trial_active = 1 AND trial_expires_at IS NOT NULL AND trial_expires_at < ?`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired trials: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddPackages unions the given offering ids into the user's purchase set.
// Already-owned ids are ignored, giving true set semantics.
func (s *UserStore) AddPackages(userID string, offeringIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, id := range offeringIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO user_packages (user_id, package_id) VALUES (?, ?)`,
			userID, id,
		); err != nil {
			return fmt.Errorf("add package %q: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *UserStore) loadPackages(u *model.User) error {
	rows, err := s.db.Query(`SELECT package_id FROM user_packages WHERE user_id = ? ORDER BY package_id`, u.ID)
	if err != nil {
		return fmt.Errorf("load packages: %w", err)
	}
	defer rows.Close()

	u.PurchasedPackages = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan package: %w", err)
		}
		u.PurchasedPackages = append(u.PurchasedPackages, id)
	}
	return rows.Err()
}
