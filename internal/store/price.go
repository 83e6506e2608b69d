package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PriceStore holds admin price overrides. Offerings without a row keep
// their catalog base price.
type PriceStore struct {
	db *sql.DB
}

func NewPriceStore(db *sql.DB) *PriceStore {
	return &PriceStore{db: db}
}

func (s *PriceStore) Overrides() (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT package_id, price FROM package_prices`)
	if err != nil {
		return nil, fmt.Errorf("get price overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]float64)
	for rows.Next() {
		var id string
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan price override: %w", err)
		}
		overrides[id] = price
	}
	return overrides, rows.Err()
}

func (s *PriceStore) Set(packageID string, price float64) error {
	_, err := s.db.Exec(
		`INSERT INTO package_prices (package_id, price, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(package_id) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
		packageID, price, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set price %q: %w", packageID, err)
	}
	return nil
}
