package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mah-di/amazon-notifier-bot/internal/scraper"
	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// Store is the slice of the database the command handlers need.
type Store interface {
	GetOrCreateUser(chatID int64, firstName, lastName, username string) (*types.User, error)
	GetProduct(asin string) (*types.Product, error)
	SaveProductData(asin, title, price, stock string) error
	ProductsOf(chatID int64) ([]types.Product, error)
	PriceHistory(asin string, since time.Time) ([]types.PricePoint, error)
}

// Tracker manages the user's subscriptions.
type Tracker interface {
	Track(username, ref string) (*types.Product, error)
	Stop(username, asin string) error
	StopAll(username string) error
	Restart(username, asin string) (*types.Product, error)
}

type Fetcher interface {
	Fetch(asin, url string) scraper.Result
}

// Bot telegram interaction client
type Bot struct {
	Bot     *tgbotapi.BotAPI
	Config  BotConfig
	store   Store
	tracker Tracker
	fetcher Fetcher
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
