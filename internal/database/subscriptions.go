package database

import (
	"fmt"
	"time"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// SubscriptionExists reports whether the (user, product) pair is tracked.
func (db *DB) SubscriptionExists(username, asin string) (bool, error) {
	query := `SELECT COUNT(1) FROM subscriptions WHERE username = ? AND product_asin = ?;`

	var n int
	if err := db.conn.QueryRow(query, username, asin).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check subscription %s/%s: %w", username, asin, err)
	}
	return n > 0, nil
}

// CreateSubscription inserts the association row. The composite primary
// key makes a racing duplicate insert a no-op rather than an error.
func (db *DB) CreateSubscription(username, asin string) error {
	query := `INSERT OR IGNORE INTO subscriptions (username, product_asin, created_at) VALUES (?, ?, ?);`
	if _, err := db.conn.Exec(query, username, asin, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to insert subscription %s/%s: %w", username, asin, err)
	}
	return nil
}

// DeleteSubscription removes one pair; removing a missing pair is a no-op.
func (db *DB) DeleteSubscription(username, asin string) error {
	query := `DELETE FROM subscriptions WHERE username = ? AND product_asin = ?;`
	if _, err := db.conn.Exec(query, username, asin); err != nil {
		return fmt.Errorf("failed to delete subscription %s/%s: %w", username, asin, err)
	}
	return nil
}

// DeleteAllSubscriptions removes every subscription of one user.
func (db *DB) DeleteAllSubscriptions(username string) error {
	query := `DELETE FROM subscriptions WHERE username = ?;`
	if _, err := db.conn.Exec(query, username); err != nil {
		return fmt.Errorf("failed to delete subscriptions of %s: %w", username, err)
	}
	return nil
}

// CountSubscriptions returns how many products the user currently tracks.
func (db *DB) CountSubscriptions(username string) (int, error) {
	query := `SELECT COUNT(1) FROM subscriptions WHERE username = ?;`

	var n int
	if err := db.conn.QueryRow(query, username).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions of %s: %w", username, err)
	}
	return n, nil
}

// SubscribersOf fetches every user tracking the given product.
func (db *DB) SubscribersOf(asin string) ([]types.User, error) {
	query := `
	SELECT u.id, u.chat_id, u.first_name, u.last_name, u.username, u.stock_notification, u.is_admin, u.created_at
	FROM users u
	JOIN subscriptions s ON s.username = u.username
	WHERE s.product_asin = ?;`

	rows, err := db.conn.Query(query, asin)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers of %s: %w", asin, err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		var created string
		if err := rows.Scan(&u.ID, &u.ChatID, &u.FirstName, &u.LastName, &u.Username, &u.StockNotification, &u.IsAdmin, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		u.CreatedAt = parseTime(created)
		users = append(users, u)
	}

	return users, rows.Err()
}

// CountSubscribersOf returns the number of users tracking the product.
// The cleanup sweep deletes products where this reaches zero.
func (db *DB) CountSubscribersOf(asin string) (int, error) {
	query := `SELECT COUNT(1) FROM subscriptions WHERE product_asin = ?;`

	var n int
	if err := db.conn.QueryRow(query, asin).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscribers of %s: %w", asin, err)
	}
	return n, nil
}

// ProductsOf fetches every product the chat's user is tracking.
func (db *DB) ProductsOf(chatID int64) ([]types.Product, error) {
	query := `
	SELECT p.id, p.asin, p.title, p.price, p.stock, p.url, p.last_checked, p.last_updated
	FROM products p
	JOIN subscriptions s ON s.product_asin = p.asin
	JOIN users u ON u.username = s.username
	WHERE u.chat_id = ?;`

	rows, err := db.conn.Query(query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products of chat %d: %w", chatID, err)
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
