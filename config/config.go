package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the bot needs at construction time. Components
// receive the values they care about through their constructors instead of
// reading globals.
type Config struct {
	Token       string
	DBPath      string
	MetricsPort int
	Debug       bool
	Lang        string

	URLPrefix string
	URLSuffix string

	TitleSelector string
	PriceSelector string
	StockSelector string

	MaxRequests int

	MaxScrapingRetry       int
	RetryScrapingInterval  time.Duration
	MaxMessagingRetry      int
	RetryMessagingInterval time.Duration

	UpdateInterval    time.Duration
	CleanupInterval   time.Duration
	UpdateConcurrency int

	AdminChatID int64
	AdminASINs  []string
}

var once sync.Once

func initViper() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "BOT_LANG")
		viper.BindEnv("url_prefix", "URL_PREFIX")
		viper.BindEnv("url_suffix", "URL_SUFFIX")
		viper.BindEnv("title_selector", "TITLE_SELECTOR")
		viper.BindEnv("price_selector", "PRICE_SELECTOR")
		viper.BindEnv("stock_selector", "STOCK_SELECTOR")
		viper.BindEnv("max_requests", "MAX_REQUESTS")
		viper.BindEnv("max_scraping_retry", "MAX_SCRAPING_RETRY")
		viper.BindEnv("retry_scraping_interval", "RETRY_SCRAPING_INTERVAL")
		viper.BindEnv("max_messaging_retry", "MAX_MESSAGING_RETRY")
		viper.BindEnv("retry_messaging_interval", "RETRY_MESSAGING_INTERVAL")
		viper.BindEnv("update_interval", "UPDATE_INTERVAL")
		viper.BindEnv("cleanup_interval", "CLEANUP_INTERVAL")
		viper.BindEnv("update_concurrency", "UPDATE_CONCURRENCY")
		viper.BindEnv("admin_chat_id", "ADMIN_CHAT_ID")
		viper.BindEnv("admin_asins", "ADMIN_ASINS")

		viper.SetDefault("db_path", "data/bot.db")
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("url_prefix", "https://www.amazon.com/dp/")
		viper.SetDefault("url_suffix", "/?language=en_US")
		viper.SetDefault("title_selector", "#productTitle")
		viper.SetDefault("price_selector", "#corePrice_feature_div .a-offscreen")
		viper.SetDefault("stock_selector", "#availability span")
		viper.SetDefault("max_requests", 5)
		viper.SetDefault("max_scraping_retry", 3)
		viper.SetDefault("retry_scraping_interval", "5s")
		viper.SetDefault("max_messaging_retry", 3)
		viper.SetDefault("retry_messaging_interval", "3s")
		viper.SetDefault("update_interval", "8m")
		viper.SetDefault("cleanup_interval", "15m")
		viper.SetDefault("update_concurrency", 10)
	})
}

// Load reads the environment once and returns the resolved configuration.
func Load() *Config {
	initViper()

	return &Config{
		Token:       viper.GetString("telegram_bot_token"),
		DBPath:      viper.GetString("db_path"),
		MetricsPort: viper.GetInt("metrics_port"),
		Debug:       viper.GetBool("debug"),
		Lang:        viper.GetString("lang"),

		URLPrefix: viper.GetString("url_prefix"),
		URLSuffix: viper.GetString("url_suffix"),

		TitleSelector: viper.GetString("title_selector"),
		PriceSelector: viper.GetString("price_selector"),
		StockSelector: viper.GetString("stock_selector"),

		MaxRequests: viper.GetInt("max_requests"),

		MaxScrapingRetry:       viper.GetInt("max_scraping_retry"),
		RetryScrapingInterval:  viper.GetDuration("retry_scraping_interval"),
		MaxMessagingRetry:      viper.GetInt("max_messaging_retry"),
		RetryMessagingInterval: viper.GetDuration("retry_messaging_interval"),

		UpdateInterval:    viper.GetDuration("update_interval"),
		CleanupInterval:   viper.GetDuration("cleanup_interval"),
		UpdateConcurrency: viper.GetInt("update_concurrency"),

		AdminChatID: viper.GetInt64("admin_chat_id"),
		AdminASINs:  splitList(viper.GetString("admin_asins")),
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
