package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// Timestamps are stored as RFC3339 text so they round-trip through the
// driver without format surprises.
const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetProduct returns the product for the given ASIN, or nil when unknown.
func (db *DB) GetProduct(asin string) (*types.Product, error) {
	query := `SELECT id, asin, title, price, stock, url, last_checked, last_updated FROM products WHERE asin = ?;`

	var p types.Product
	var checked, updated string
	err := db.conn.QueryRow(query, asin).Scan(&p.ID, &p.ASIN, &p.Title, &p.Price, &p.Stock, &p.URL, &checked, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", asin, err)
	}

	p.LastChecked = parseTime(checked)
	p.LastUpdated = parseTime(updated)
	return &p, nil
}

// CreateProduct inserts a new product row; last_checked and last_updated
// both start at now.
func (db *DB) CreateProduct(p *types.Product) error {
	now := time.Now()
	query := `
	INSERT INTO products (asin, title, price, stock, url, last_checked, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?);`

	res, err := db.conn.Exec(query, p.ASIN, p.Title, p.Price, p.Stock, p.URL, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.ASIN, err)
	}

	p.LastChecked = now
	p.LastUpdated = now
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

// AllProducts fetches every tracked product.
func (db *DB) AllProducts() ([]types.Product, error) {
	query := `SELECT id, asin, title, price, stock, url, last_checked, last_updated FROM products;`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []types.Product
	for rows.Next() {
		var p types.Product
		var checked, updated string
		if err := rows.Scan(&p.ID, &p.ASIN, &p.Title, &p.Price, &p.Stock, &p.URL, &checked, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.LastChecked = parseTime(checked)
		p.LastUpdated = parseTime(updated)
		products = append(products, p)
	}

	return products, rows.Err()
}

// SaveProductData overwrites title/price/stock and bumps both timestamps.
// Updating a row that vanished mid-sweep is a no-op, not an error.
func (db *DB) SaveProductData(asin, title, price, stock string) error {
	query := `UPDATE products SET title = ?, price = ?, stock = ?, last_checked = ?, last_updated = ? WHERE asin = ?;`
	now := formatTime(time.Now())
	if _, err := db.conn.Exec(query, title, price, stock, now, now, asin); err != nil {
		return fmt.Errorf("failed to update product %s: %w", asin, err)
	}
	return nil
}

// TouchProduct bumps last_checked only.
func (db *DB) TouchProduct(asin string) error {
	query := `UPDATE products SET last_checked = ? WHERE asin = ?;`
	if _, err := db.conn.Exec(query, formatTime(time.Now()), asin); err != nil {
		return fmt.Errorf("failed to touch product %s: %w", asin, err)
	}
	return nil
}

// DeleteProduct removes the product and its price history in one
// transaction, so a crash can never leave orphaned history rows.
func (db *DB) DeleteProduct(asin string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", asin, err)
	}
	if _, err := tx.Exec(`DELETE FROM products WHERE asin = ?;`, asin); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete product %s: %w", asin, err)
	}
	if _, err := tx.Exec(`DELETE FROM price_history WHERE product_asin = ?;`, asin); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete price history for %s: %w", asin, err)
	}
	return tx.Commit()
}
