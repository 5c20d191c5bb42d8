package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "amazon_notifier",
		Subsystem: "telegram_bot",
		Name:      "commands_processed",
		Help:      "The total number of processed commands",
	})
	MessagesHandled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "amazon_notifier",
		Subsystem: "telegram_bot",
		Name:      "messages_handled",
		Help:      "The total number of handled messages",
	})
	MessagesPerChannel = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amazon_notifier",
			Subsystem: "telegram_bot",
			Name:      "messages_per_channel",
			Help:      "The total number of messages handled per channel",
		},
		[]string{"chat_id", "chat_name"},
	)
	UpdateChecks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "amazon_notifier",
		Subsystem: "updater",
		Name:      "update_checks",
		Help:      "The total number of per-product update checks performed",
	})
	NotificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "amazon_notifier",
		Subsystem: "updater",
		Name:      "notifications_sent",
		Help:      "The total number of notifications delivered",
	})
	ScrapeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "amazon_notifier",
		Subsystem: "scraper",
		Name:      "scrape_failures",
		Help:      "The total number of failed fetch attempts",
	})
	TrackedProducts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amazon_notifier",
		Subsystem: "updater",
		Name:      "tracked_products",
		Help:      "The current number of products in the store",
	})
)

func init() {
	prometheus.MustRegister(CommandsProcessed)
	prometheus.MustRegister(MessagesHandled)
	prometheus.MustRegister(MessagesPerChannel)
	prometheus.MustRegister(UpdateChecks)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(ScrapeFailures)
	prometheus.MustRegister(TrackedProducts)
}
