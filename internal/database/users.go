package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// GetUser returns the user with the given username, or nil when unknown.
func (db *DB) GetUser(username string) (*types.User, error) {
	query := `SELECT id, chat_id, first_name, last_name, username, stock_notification, is_admin, created_at FROM users WHERE username = ?;`

	var u types.User
	var created string
	err := db.conn.QueryRow(query, username).Scan(&u.ID, &u.ChatID, &u.FirstName, &u.LastName, &u.Username, &u.StockNotification, &u.IsAdmin, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}

	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (db *DB) CreateUser(u *types.User) error {
	now := time.Now()
	query := `
	INSERT INTO users (chat_id, first_name, last_name, username, stock_notification, is_admin, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);`

	res, err := db.conn.Exec(query, u.ChatID, u.FirstName, u.LastName, u.Username, u.StockNotification, u.IsAdmin, formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", u.Username, err)
	}

	u.CreatedAt = now
	if id, err := res.LastInsertId(); err == nil {
		u.ID = id
	}
	return nil
}

// GetOrCreateUser creates the user lazily on first interaction. New users
// start with stock notifications enabled.
func (db *DB) GetOrCreateUser(chatID int64, firstName, lastName, username string) (*types.User, error) {
	u, err := db.GetUser(username)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	u = &types.User{
		ChatID:            chatID,
		FirstName:         firstName,
		LastName:          lastName,
		Username:          username,
		StockNotification: true,
	}
	if err := db.CreateUser(u); err != nil {
		return nil, err
	}
	return u, nil
}
