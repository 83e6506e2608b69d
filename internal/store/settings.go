package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Site message settings keys. The admin layer may only edit keys listed
// here; the set matches the messages the storefront renders.
var messageKeys = []string{
	"message_trial_used",
	"message_trial_expired",
}

const (
	keyTrialDurationHours = "trial_duration_hours"
	keyPromotionMessage   = "promotion_message"
)

const defaultTrialDurationHours = 24

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Messages returns the editable site messages keyed by their short names
// ("trial_used", "trial_expired").
func (s *SettingsStore) Messages() (map[string]string, error) {
	messages := make(map[string]string)
	for _, key := range messageKeys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get message %q: %w", key, err)
		}
		messages[key[len("message_"):]] = value
	}
	return messages, nil
}

// IsMessageKey reports whether the short key names an editable message.
func IsMessageKey(short string) bool {
	for _, key := range messageKeys {
		if key == "message_"+short {
			return true
		}
	}
	return false
}

// SetMessage stores a site message under its short key.
func (s *SettingsStore) SetMessage(short, value string) error {
	return s.Set("message_"+short, value)
}

// TrialDurationHours returns the configured trial length. Only trials
// activated after a change pick up the new value; in-flight trials keep
// their computed deadline.
func (s *SettingsStore) TrialDurationHours() (int, error) {
	value, err := s.Get(keyTrialDurationHours)
	if err != nil {
		return defaultTrialDurationHours, nil
	}
	hours, err := strconv.Atoi(value)
	if err != nil || hours <= 0 {
		return defaultTrialDurationHours, nil
	}
	return hours, nil
}

func (s *SettingsStore) SetTrialDurationHours(hours int) error {
	return s.Set(keyTrialDurationHours, strconv.Itoa(hours))
}

func (s *SettingsStore) PromotionMessage() (string, error) {
	value, err := s.Get(keyPromotionMessage)
	if err != nil {
		return "", nil
	}
	return value, nil
}

func (s *SettingsStore) SetPromotionMessage(text string) error {
	return s.Set(keyPromotionMessage, text)
}
