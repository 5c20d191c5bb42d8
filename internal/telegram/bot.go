package telegram

import (
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mah-di/amazon-notifier-bot/internal/chart"
	"github.com/mah-di/amazon-notifier-bot/internal/metrics"
	"github.com/mah-di/amazon-notifier-bot/internal/tracker"
	"github.com/mah-di/amazon-notifier-bot/internal/types"
	"github.com/mah-di/amazon-notifier-bot/lib/helpers"
	"github.com/mah-di/amazon-notifier-bot/lib/translation"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, store Store, tr Tracker, fetcher Fetcher) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:     bot,
		Config:  c,
		store:   store,
		tracker: tr,
		fetcher: fetcher,
	}, nil
}

// GetUpdatesChannel gets new updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m)
}

// Send lets the bot act as the delivery backend for notifications.
func (b *Bot) Send(chatID int64, text string) error {
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

// HandleUpdate processes Telegram updates
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	m := u.Message
	log.Debugf("received command: %s", m.Command())

	// Channel posts carry no sender; there is nobody to subscribe.
	if m.From == nil {
		return ""
	}

	user, err := b.store.GetOrCreateUser(m.Chat.ID, m.From.FirstName, m.From.LastName, m.From.UserName)
	if err != nil {
		log.Errorf("Could not load user for chat %d: %v", m.Chat.ID, err)
		return translation.Translate("Something went wrong. Please try again later.")
	}
	username := user.Username
	if username == "" {
		username = strconv.FormatInt(user.ChatID, 10)
	}

	switch m.Command() {
	case "start":
		return translation.Translate("Welcome! Send /track with an Amazon product link or ASIN and I will watch the price and stock for you.") + "\n\n" + b.helpText()
	case "help":
		return b.helpText()
	case "about":
		return translation.Translate("I keep an eye on Amazon listings and message you whenever the price or stock of a tracked product changes.")
	case "track":
		return b.handleTrack(username, m)
	case "update":
		return b.handleUpdateProduct(m)
	case "updateall":
		return b.handleUpdateAll(m)
	case "stop":
		return b.handleStop(username, m)
	case "stopall":
		if err := b.tracker.StopAll(username); err != nil {
			log.Errorf("Stop all failed for %s: %v", username, err)
			return translation.Translate("Something went wrong. Please try again later.")
		}
		return translation.Translate("All products have been removed from your tracking list.")
	case "restart":
		return b.handleRestart(username, m)
	case "chart":
		return b.handleChart(m)
	}

	return b.helpText()
}

func (b *Bot) helpText() string {
	return translation.Translate("Available commands:") + "\n" +
		"/track <link or ASIN> - " + translation.Translate("start tracking a product") + "\n" +
		"/update - " + translation.Translate("refresh a product (reply to its message)") + "\n" +
		"/updateall - " + translation.Translate("refresh everything you track") + "\n" +
		"/stop - " + translation.Translate("stop tracking a product (reply to its message)") + "\n" +
		"/stopall - " + translation.Translate("stop tracking everything") + "\n" +
		"/restart - " + translation.Translate("resume a stopped product (reply to its message)") + "\n" +
		"/chart - " + translation.Translate("price history chart (reply to a product message)")
}

func (b *Bot) handleTrack(username string, m *tgbotapi.Message) string {
	metrics.CommandsProcessed.Inc()
	refs := strings.Fields(m.CommandArguments())
	if len(refs) == 0 {
		return translation.Translate("Usage: /track <Amazon product link or ASIN>")
	}

	// Each reference gets its own reply so every product message can
	// anchor reply commands later.
	for _, ref := range refs[:len(refs)-1] {
		if err := b.Send(m.Chat.ID, b.trackOne(username, ref)); err != nil {
			log.Error(err)
		}
	}
	return b.trackOne(username, refs[len(refs)-1])
}

func (b *Bot) trackOne(username, ref string) string {
	product, err := b.tracker.Track(username, ref)
	switch {
	case err == nil:
		return helpers.ProductMessage(*product)
	case errors.Is(err, tracker.ErrInvalidReference):
		return translation.Translate("That does not look like an Amazon product link or ASIN.")
	case errors.Is(err, tracker.ErrAlreadyTracked):
		return translation.Translate("You are already tracking this product.")
	case errors.Is(err, tracker.ErrQuotaExceeded):
		return translation.Translate("You have reached your tracking limit. Stop tracking something first.")
	case errors.Is(err, tracker.ErrUnavailable):
		return translation.Translate("I could not read that product page. Please try again later.")
	default:
		log.Errorf("Track failed for %s: %v", username, err)
		return translation.Translate("Something went wrong. Please try again later.")
	}
}

// productFromReply resolves the product a reply-scoped command points at.
// Only replies to the bot's own product messages are accepted.
func (b *Bot) productFromReply(m *tgbotapi.Message, allowStopped bool) (asin, url string, ok bool) {
	reply := m.ReplyToMessage
	if reply == nil || reply.From == nil || reply.From.ID != b.Bot.Self.ID {
		return "", "", false
	}
	if allowStopped {
		if !helpers.IsRestartableMessage(reply.Text) {
			return "", "", false
		}
	} else if !helpers.IsProductMessage(reply.Text) {
		return "", "", false
	}
	return helpers.ExtractASIN(reply.Text)
}

func (b *Bot) handleUpdateProduct(m *tgbotapi.Message) string {
	metrics.CommandsProcessed.Inc()
	asin, _, ok := b.productFromReply(m, false)
	if !ok {
		return translation.Translate("Reply to one of my product messages with /update to refresh it.")
	}

	product, err := b.refreshProduct(asin)
	if err != nil {
		log.Errorf("Update failed for %s: %v", asin, err)
		return translation.Translate("I could not refresh that product. Please try again later.")
	}
	if product == nil {
		return translation.Translate("This product is no longer tracked. Reply with /restart to track it again.")
	}
	return helpers.ProductMessage(*product)
}

func (b *Bot) handleUpdateAll(m *tgbotapi.Message) string {
	metrics.CommandsProcessed.Inc()
	products, err := b.store.ProductsOf(m.Chat.ID)
	if err != nil {
		log.Errorf("Update all failed for chat %d: %v", m.Chat.ID, err)
		return translation.Translate("Something went wrong. Please try again later.")
	}
	if len(products) == 0 {
		return translation.Translate("You are not tracking any products yet. Send /track to get started.")
	}

	for _, p := range products {
		fresh, err := b.refreshProduct(p.ASIN)
		if err != nil || fresh == nil {
			log.Errorf("Update all could not refresh %s: %v", p.ASIN, err)
			continue
		}
		if err := b.Send(m.Chat.ID, helpers.ProductMessage(*fresh)); err != nil {
			log.Error(err)
		}
	}
	return ""
}

// refreshProduct re-fetches a listing on demand and persists whatever
// came back, keeping stored fields when the fetch came back degraded.
func (b *Bot) refreshProduct(asin string) (*types.Product, error) {
	stored, err := b.store.GetProduct(asin)
	if err != nil || stored == nil {
		return nil, err
	}

	res := b.fetcher.Fetch(asin, stored.URL)
	if res.Title == "" && res.Price == "" {
		stock := res.Stock
		if stock == "" {
			stock = stored.Stock
		}
		if err := b.store.SaveProductData(asin, stored.Title, stored.Price, stock); err != nil {
			return nil, err
		}
	} else {
		if err := b.store.SaveProductData(asin, res.Title, res.Price, res.Stock); err != nil {
			return nil, err
		}
	}
	return b.store.GetProduct(asin)
}

func (b *Bot) handleStop(username string, m *tgbotapi.Message) string {
	metrics.CommandsProcessed.Inc()
	asin, url, ok := b.productFromReply(m, false)
	if !ok {
		return translation.Translate("Reply to one of my product messages with /stop to stop tracking it.")
	}

	if err := b.tracker.Stop(username, asin); err != nil {
		log.Errorf("Stop failed for %s/%s: %v", username, asin, err)
		return translation.Translate("Something went wrong. Please try again later.")
	}
	return helpers.StopMessage(url)
}

func (b *Bot) handleRestart(username string, m *tgbotapi.Message) string {
	metrics.CommandsProcessed.Inc()
	asin, _, ok := b.productFromReply(m, true)
	if !ok {
		return translation.Translate("Reply to one of my product messages with /restart to resume tracking.")
	}

	product, err := b.tracker.Restart(username, asin)
	switch {
	case err == nil:
		return helpers.RestartMessage(*product)
	case errors.Is(err, tracker.ErrAlreadyTracked):
		return translation.Translate("You are already tracking this product.")
	case errors.Is(err, tracker.ErrUnavailable):
		return translation.Translate("I could not read that product page. Please try again later.")
	default:
		log.Errorf("Restart failed for %s/%s: %v", username, asin, err)
		return translation.Translate("Something went wrong. Please try again later.")
	}
}

func (b *Bot) handleChart(m *tgbotapi.Message) string {
	metrics.CommandsProcessed.Inc()
	asin, ok := tracker.ParseReference(strings.TrimSpace(m.CommandArguments()))
	if !ok {
		asin, _, ok = b.productFromReply(m, true)
	}
	if !ok {
		return translation.Translate("Reply to one of my product messages with /chart, or pass a link or ASIN, to see its price history.")
	}

	product, err := b.store.GetProduct(asin)
	if err != nil || product == nil {
		return translation.Translate("This product is no longer tracked.")
	}

	points, err := b.store.PriceHistory(asin, time.Time{})
	if err != nil {
		log.Errorf("Could not load price history for %s: %v", asin, err)
		return translation.Translate("Something went wrong. Please try again later.")
	}

	data, err := chart.RenderPriceHistory(product.Title, points)
	if err != nil {
		return translation.Translate("Not enough price history yet. Check back after a few price changes.")
	}

	photo := tgbotapi.NewPhoto(m.Chat.ID, tgbotapi.FileBytes{
		Name:  "chart.png",
		Bytes: data,
	})
	photo.ReplyToMessageID = m.MessageID
	if _, err := b.Bot.Send(photo); err != nil {
		log.Error("error sending chart:", err)
	}
	return ""
}
