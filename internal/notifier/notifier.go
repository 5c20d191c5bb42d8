package notifier

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mah-di/amazon-notifier-bot/internal/metrics"
)

// Sender delivers a single message to a chat.
type Sender interface {
	Send(chatID int64, text string) error
}

// Notifier wraps a Sender with retry. Delivery failures are retried with
// a fixed sleep; when retries run out the message is logged and dropped,
// never bubbled up to the sweep.
type Notifier struct {
	sender   Sender
	maxRetry int
	interval time.Duration
	sleep    func(time.Duration)
}

func New(sender Sender, maxRetry int, interval time.Duration) *Notifier {
	return &Notifier{
		sender:   sender,
		maxRetry: maxRetry,
		interval: interval,
		sleep:    time.Sleep,
	}
}

func (n *Notifier) Notify(chatID int64, text string) {
	retries := 0
	for retries <= n.maxRetry {
		err := n.sender.Send(chatID, text)
		if err == nil {
			metrics.NotificationsSent.Inc()
			return
		}
		retries++
		log.Errorf("Failed to notify chat %d: %v. Retrying in %s (%d/%d)", chatID, err, n.interval, retries, n.maxRetry)
		if retries <= n.maxRetry {
			n.sleep(n.interval)
		}
	}
	log.Errorf("Dropping notification for chat %d after %d attempts", chatID, n.maxRetry+1)
}
