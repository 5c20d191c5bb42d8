package helpers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

const unknownField = "No information..."

// Prefixes of bot-authored product messages. Reply-scoped commands
// (/update, /stop, /restart) only accept replies to messages carrying one
// of these, and re-derive the ASIN from the embedded URL.
const (
	PrefixUpdateAlert = "Update Alert!"
	PrefixTitle       = "Title: "
	PrefixLastChecked = "Last checked: "
	PrefixRestarted   = "Tracking Restarted!"
	PrefixStopped     = "Product ("
)

var asinFromURL = regexp.MustCompile(`/dp/([A-Z0-9]{10})[/?]`)

// IsProductMessage reports whether text is one of the bot's product
// messages that can anchor /update and /stop.
func IsProductMessage(text string) bool {
	for _, p := range []string{PrefixUpdateAlert, PrefixTitle, PrefixLastChecked, PrefixRestarted} {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// IsRestartableMessage additionally accepts the stop confirmation, so a
// user can restart straight from the message that stopped the tracking.
func IsRestartableMessage(text string) bool {
	return IsProductMessage(text) || strings.HasPrefix(text, PrefixStopped)
}

// ExtractASIN pulls the ASIN and URL out of a bot-authored product
// message. Stop confirmations embed the URL in parentheses, every other
// template carries a "Buy Now:" line.
func ExtractASIN(text string) (asin, url string, ok bool) {
	if strings.HasPrefix(text, PrefixStopped) {
		open := strings.Index(text, "(")
		end := strings.Index(text, ")")
		if open == -1 || end == -1 || end < open {
			return "", "", false
		}
		url = text[open+1 : end]
	} else {
		idx := strings.Index(text, "Buy Now: ")
		if idx == -1 {
			return "", "", false
		}
		url = strings.TrimSpace(text[idx+len("Buy Now: "):])
	}

	m := asinFromURL.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], url, true
}

// ComparablePrice turns a locale-formatted price string into a float for
// equality checks. Anything unparsable maps to -1, so two failed parses
// compare equal while a real price never equals a failed one.
func ComparablePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	cleaned = strings.Trim(cleaned, "$ ")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return -1
	}
	return v
}

// ElapsedSince renders a timestamp as "5 minutes ago".
func ElapsedSince(t time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	return humanize.Time(t)
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}

// ProductMessage renders the plain tracking confirmation / status message.
func ProductMessage(p types.Product) string {
	return fmt.Sprintf(
		"Last checked: %s\n\nTitle: %s\n\nStock Status: %s\nPrice: %s\n\nBuy Now: %s\n\n",
		ElapsedSince(p.LastChecked), orUnknown(p.Title), orUnknown(p.Stock), orUnknown(p.Price), p.URL,
	)
}

// UpdateMessage renders the change alert sent by the update sweep. For a
// price change both old and new prices are shown; stockUpdate switches
// the headline to the stock template.
func UpdateMessage(p types.Product, oldPrice string, stockUpdate bool) string {
	headline := "Update Alert! Price updated."
	if stockUpdate {
		headline = "Update Alert! Stock updated."
	}

	if oldPrice == "" {
		return fmt.Sprintf(
			"%s\nLast checked: %s\n\nTitle: %s\n\nStock Status: %s\nPrice: %s\n\nBuy Now: %s\n\n",
			headline, ElapsedSince(p.LastChecked), orUnknown(p.Title), orUnknown(p.Stock), orUnknown(p.Price), p.URL,
		)
	}

	return fmt.Sprintf(
		"%s\nLast checked: %s\n\nTitle: %s\n\nStock Status: %s\nPrevious Price: %s\nUpdated Price: %s\n\nBuy Now: %s\n\n",
		headline, ElapsedSince(p.LastChecked), orUnknown(p.Title), orUnknown(p.Stock), oldPrice, orUnknown(p.Price), p.URL,
	)
}

// RestartMessage renders the restart confirmation.
func RestartMessage(p types.Product) string {
	return fmt.Sprintf(
		"Tracking Restarted!\nLast checked: %s\n\nTitle: %s\n\nStock Status: %s\nPrice: %s\n\nBuy Now: %s\n\n",
		ElapsedSince(p.LastChecked), orUnknown(p.Title), orUnknown(p.Stock), orUnknown(p.Price), p.URL,
	)
}

// AdminMessage renders the liveness notification for watched ASINs.
func AdminMessage(p types.Product) string {
	return fmt.Sprintf(
		"Admin Notification!\nLast checked: %s\n\nTitle: %s\n\nStock Status: %s\nPrice: %s\n\nBuy Now: %s\n\n",
		ElapsedSince(p.LastChecked), orUnknown(p.Title), orUnknown(p.Stock), orUnknown(p.Price), p.URL,
	)
}

// StopMessage renders the stop confirmation; its "Product (url)" shape is
// what lets /restart recover the ASIN from a reply to it.
func StopMessage(url string) string {
	return fmt.Sprintf("Product (%s) has been removed from your tracking list. To start receiving updates again, reply with /restart", url)
}
