package types

import "time"

// Product is a tracked Amazon listing. Title, Price and Stock are kept as
// the page shows them; an empty string means "unknown".
type Product struct {
	ID          int64     `json:"id"`
	ASIN        string    `json:"asin"`
	Title       string    `json:"title"`
	Price       string    `json:"price"`
	Stock       string    `json:"stock"`
	URL         string    `json:"url"`
	LastChecked time.Time `json:"last_checked"`
	LastUpdated time.Time `json:"last_updated"` // moves only on a real data change
}

// User is a telegram account that interacted with the bot at least once.
type User struct {
	ID                int64     `json:"id"`
	ChatID            int64     `json:"chat_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Username          string    `json:"username"`
	StockNotification bool      `json:"stock_notification"`
	IsAdmin           bool      `json:"is_admin"`
	CreatedAt         time.Time `json:"created_at"`
}

// PricePoint is one observed price of a product, recorded by the update
// sweep whenever the page price parses numerically.
type PricePoint struct {
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}
