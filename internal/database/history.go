package database

import (
	"fmt"
	"time"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// AddPricePoint records one observed numeric price for a product.
func (db *DB) AddPricePoint(asin string, price float64) error {
	query := `INSERT INTO price_history (product_asin, price, recorded_at) VALUES (?, ?, ?);`
	if _, err := db.conn.Exec(query, asin, price, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to insert price point for %s: %w", asin, err)
	}
	return nil
}

// PriceHistory returns the recorded prices for a product since the given
// time, oldest first.
func (db *DB) PriceHistory(asin string, since time.Time) ([]types.PricePoint, error) {
	query := `
	SELECT price, recorded_at
	FROM price_history
	WHERE product_asin = ? AND recorded_at >= ?
	ORDER BY recorded_at ASC, id ASC;`

	rows, err := db.conn.Query(query, asin, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query price history of %s: %w", asin, err)
	}
	defer rows.Close()

	var points []types.PricePoint
	for rows.Next() {
		var p types.PricePoint
		var recorded string
		if err := rows.Scan(&p.Price, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.RecordedAt = parseTime(recorded)
		points = append(points, p)
	}

	return points, rows.Err()
}
