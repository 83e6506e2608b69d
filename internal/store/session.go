package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hzrede/studio/internal/model"
)

const sessionTTL = 30 * 24 * time.Hour

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionCols = `id, token, user_email, is_admin, expires_at, created_at`

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	var email sql.NullString
	err := scanner.Scan(&s.ID, &s.Token, &email, &s.IsAdmin, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		s.UserEmail = &email.String
	}
	return &s, nil
}

// Create starts an anonymous session with a crypto-random token. The user
// pointer and admin flag are both unset.
func (s *SessionStore) Create() (*model.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiresAt := time.Now().UTC().Add(sessionTTL)

	result, err := s.db.Exec(
		`INSERT INTO sessions (token, expires_at) VALUES (?, ?)`,
		token, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the session for the given token, or nil if expired or
// not found.
func (s *SessionStore) GetByToken(token string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC(),
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// SetUserEmail points the session at the given user email.
func (s *SessionStore) SetUserEmail(id int64, email string) error {
	_, err := s.db.Exec(`UPDATE sessions SET user_email = ? WHERE id = ?`, email, id)
	if err != nil {
		return fmt.Errorf("set session user: %w", err)
	}
	return nil
}

// SetAdmin sets the session's admin flag. Independent of the user pointer.
func (s *SessionStore) SetAdmin(id int64, isAdmin bool) error {
	_, err := s.db.Exec(`UPDATE sessions SET is_admin = ? WHERE id = ?`, isAdmin, id)
	if err != nil {
		return fmt.Errorf("set session admin: %w", err)
	}
	return nil
}

// Clear resets both the user pointer and the admin flag in one statement,
// so a logout never leaves a half-cleared session.
func (s *SessionStore) Clear(id int64) error {
	_, err := s.db.Exec(`UPDATE sessions SET user_email = NULL, is_admin = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
