package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hzrede/studio/internal/model"
)

// PaymentStore is the append-only purchase ledger. Rows are never updated
// or deleted; creation order is preserved via rowid.
type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

const paymentCols = `id, user_id, offering_id, status, method, date`

func scanAttempt(scanner interface{ Scan(...any) error }) (*model.PaymentAttempt, error) {
	var a model.PaymentAttempt
	err := scanner.Scan(&a.ID, &a.UserID, &a.OfferingID, &a.Status, &a.Method, &a.Date)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create appends an attempt. The id and timestamp are assigned here, never
// by the caller.
func (s *PaymentStore) Create(userID, offeringID, status, method string) (*model.PaymentAttempt, error) {
	a := &model.PaymentAttempt{
		ID:         "pay_" + uuid.NewString(),
		UserID:     userID,
		OfferingID: offeringID,
		Status:     status,
		Method:     method,
		Date:       time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO payment_attempts (id, user_id, offering_id, status, method, date) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.OfferingID, a.Status, a.Method, a.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment attempt: %w", err)
	}
	return a, nil
}

// List returns the full ledger in creation order.
func (s *PaymentStore) List() ([]*model.PaymentAttempt, error) {
	return s.list(`SELECT ` + paymentCols + ` FROM payment_attempts ORDER BY rowid`)
}

// ListDesc returns the ledger newest-first, for display.
func (s *PaymentStore) ListDesc() ([]*model.PaymentAttempt, error) {
	return s.list(`SELECT ` + paymentCols + ` FROM payment_attempts ORDER BY rowid DESC`)
}

func (s *PaymentStore) list(query string) ([]*model.PaymentAttempt, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.PaymentAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Revenue sums the given per-offering prices over all successful attempts.
// Prices are the prices of *now*, so historical revenue shifts when an
// admin edits a price afterwards.
func (s *PaymentStore) Revenue(prices map[string]float64) (float64, error) {
	rows, err := s.db.Query(`SELECT offering_id FROM payment_attempts WHERE status = ?`, model.PaymentSuccess)
	if err != nil {
		return 0, fmt.Errorf("query successful attempts: %w", err)
	}
	defer rows.Close()

	var total float64
	for rows.Next() {
		var offeringID string
		if err := rows.Scan(&offeringID); err != nil {
			return 0, fmt.Errorf("scan offering id: %w", err)
		}
		total += prices[offeringID]
	}
	return total, rows.Err()
}
