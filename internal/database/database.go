package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle. Every method is a single statement or a
// single transaction, so each call is atomic on its own; no cross-call
// transactions are exposed.
type DB struct {
	conn *sql.DB
}

func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite rejects concurrent writers on a single file; serialize through
	// one connection so the sweep's fan-out doesn't hit SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	createTables := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL UNIQUE,
		stock_notification INTEGER NOT NULL DEFAULT 1,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asin TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		stock TEXT NOT NULL,
		url TEXT NOT NULL,
		last_checked TIMESTAMP NOT NULL,
		last_updated TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS subscriptions (
		username TEXT NOT NULL,
		product_asin TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (username, product_asin)
	);
	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_asin TEXT NOT NULL,
		price REAL NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT DEFAULT NULL,
		label_value TEXT DEFAULT NULL,
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err := conn.Exec(createTables); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("Database initialized successfully.")
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
