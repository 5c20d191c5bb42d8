package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"github.com/mah-di/amazon-notifier-bot/config"
	"github.com/mah-di/amazon-notifier-bot/internal/database"
	"github.com/mah-di/amazon-notifier-bot/internal/metrics"
	"github.com/mah-di/amazon-notifier-bot/internal/notifier"
	"github.com/mah-di/amazon-notifier-bot/internal/scraper"
	"github.com/mah-di/amazon-notifier-bot/internal/telegram"
	"github.com/mah-di/amazon-notifier-bot/internal/tracker"
	"github.com/mah-di/amazon-notifier-bot/internal/updater"
	"github.com/mah-di/amazon-notifier-bot/lib/translation"
)

var metricsMux sync.Mutex

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	translation.Configure("locales", strings.ToLower(cfg.Lang))

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	loadMetricsFromDB(db)

	scr := scraper.New(scraper.Config{
		URLPrefix:     cfg.URLPrefix,
		URLSuffix:     cfg.URLSuffix,
		TitleSelector: cfg.TitleSelector,
		PriceSelector: cfg.PriceSelector,
		StockSelector: cfg.StockSelector,
		MaxRetry:      cfg.MaxScrapingRetry,
		RetryInterval: cfg.RetryScrapingInterval,
		Debug:         cfg.Debug,
	})

	tr := tracker.New(db, scr, cfg.MaxRequests)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          cfg.Token,
		Debug:          cfg.Debug,
		UpdatesTimeout: 60,
	}, db, tr, scr)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ntf := notifier.New(bot, cfg.MaxMessagingRetry, cfg.RetryMessagingInterval)

	upd := updater.New(db, scr, ntf, updater.Config{
		UpdateInterval:  cfg.UpdateInterval,
		CleanupInterval: cfg.CleanupInterval,
		Concurrency:     cfg.UpdateConcurrency,
		AdminChatID:     cfg.AdminChatID,
		AdminASINs:      cfg.AdminASINs,
	})
	go upd.Start()
	go upd.StartCleanup()

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}

	go handleUpdates(bot, updates)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			saveMetricsToDB(db)
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		saveMetricsToDB(db)
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(cfg.MetricsPort); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging(cfg *config.Config) {
	log.SetLevel(log.ErrorLevel)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message update")
			continue
		}

		if !update.Message.IsCommand() {
			continue
		}

		metrics.MessagesHandled.Inc()

		chatID := update.Message.Chat.ID
		chatName := update.Message.Chat.Title
		if chatName == "" {
			chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
		}

		metrics.MessagesPerChannel.WithLabelValues(
			fmt.Sprintf("%d", chatID), chatName,
		).Inc()

		handleCommand(bot, update)
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text := bot.HandleUpdate(update)
	if text == "" {
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})
	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func loadMetricsFromDB(db *database.DB) {
	metricsMux.Lock()
	defer metricsMux.Unlock()

	counters := map[string]prometheus.Counter{
		"commands_processed": metrics.CommandsProcessed,
		"messages_handled":   metrics.MessagesHandled,
		"update_checks":      metrics.UpdateChecks,
		"notifications_sent": metrics.NotificationsSent,
		"scrape_failures":    metrics.ScrapeFailures,
	}
	for name, counter := range counters {
		value, err := db.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counter.Add(value)
	}

	labeled, err := db.GetMetricsWithLabels("messages_per_channel")
	if err != nil {
		log.Errorf("Failed to load messages_per_channel: %v", err)
		return
	}
	for chatID, chatNames := range labeled {
		for chatName, value := range chatNames {
			metrics.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
		}
	}

	log.Println("Metrics loaded from database.")
}

func saveMetricsToDB(db *database.DB) {
	metricsMux.Lock()
	defer metricsMux.Unlock()

	counters := map[string]prometheus.Counter{
		"commands_processed": metrics.CommandsProcessed,
		"messages_handled":   metrics.MessagesHandled,
		"update_checks":      metrics.UpdateChecks,
		"notifications_sent": metrics.NotificationsSent,
		"scrape_failures":    metrics.ScrapeFailures,
	}
	for name, counter := range counters {
		if err := db.SaveMetric(name, "", "", getMetricValue(counter)); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}

	metricChan := make(chan prometheus.Metric)
	go func() {
		metrics.MessagesPerChannel.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read MessagesPerChannel metric: %v", err)
			continue
		}
		var chatID, chatName string
		for _, label := range metricProto.Label {
			if label.GetName() == "chat_id" {
				chatID = label.GetValue()
			}
			if label.GetName() == "chat_name" {
				chatName = label.GetValue()
			}
		}
		if err := db.SaveMetric("messages_per_channel", chatID, chatName, metricProto.Counter.GetValue()); err != nil {
			log.Errorf("Failed to save messages_per_channel: %v", err)
		}
	}

	log.Println("Metrics saved to database.")
}

func getMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
