package tracker

import (
	"regexp"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mah-di/amazon-notifier-bot/internal/scraper"
	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

// User-facing failures; the telegram layer maps these to replies.
var (
	ErrInvalidReference = errors.New("could not find a valid product reference")
	ErrAlreadyTracked   = errors.New("product is already being tracked")
	ErrQuotaExceeded    = errors.New("tracking limit reached")
	ErrUnavailable      = errors.New("product page could not be read")
)

var (
	asinInURL = regexp.MustCompile(`/dp/([A-Z0-9]{10})[/?]`)
	bareASIN  = regexp.MustCompile(`^[A-Z0-9]{10}$`)
)

// Store is the slice of the database the tracker needs.
type Store interface {
	GetProduct(asin string) (*types.Product, error)
	CreateProduct(p *types.Product) error
	SubscriptionExists(username, asin string) (bool, error)
	CreateSubscription(username, asin string) error
	DeleteSubscription(username, asin string) error
	DeleteAllSubscriptions(username string) error
	CountSubscriptions(username string) (int, error)
}

// Fetcher retrieves listing data for an ASIN.
type Fetcher interface {
	ProductURL(asin string) string
	Fetch(asin, url string) scraper.Result
}

type Tracker struct {
	store       Store
	fetcher     Fetcher
	maxRequests int
}

func New(store Store, fetcher Fetcher, maxRequests int) *Tracker {
	return &Tracker{
		store:       store,
		fetcher:     fetcher,
		maxRequests: maxRequests,
	}
}

// ParseReference extracts an ASIN from a product URL or a bare ASIN.
func ParseReference(ref string) (string, bool) {
	if m := asinInURL.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	if bareASIN.MatchString(ref) {
		return ref, true
	}
	return "", false
}

// Track subscribes the user to the product behind ref. Duplicates are
// rejected before the quota check, and the quota is checked before any
// network fetch happens.
func (t *Tracker) Track(username, ref string) (*types.Product, error) {
	asin, ok := ParseReference(ref)
	if !ok {
		return nil, ErrInvalidReference
	}

	exists, err := t.store.SubscriptionExists(username, asin)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyTracked
	}

	count, err := t.store.CountSubscriptions(username)
	if err != nil {
		return nil, err
	}
	if count >= t.maxRequests {
		return nil, ErrQuotaExceeded
	}

	product, err := t.store.GetProduct(asin)
	if err != nil {
		return nil, err
	}
	if product == nil {
		product, err = t.fetchProduct(asin)
		if err != nil {
			return nil, err
		}
		if err := t.store.CreateProduct(product); err != nil {
			return nil, err
		}
	}

	if err := t.store.CreateSubscription(username, asin); err != nil {
		return nil, err
	}
	log.Debugf("User %s now tracking %s", username, asin)
	return product, nil
}

// Stop removes the user's subscription. Stopping something never tracked
// is a no-op.
func (t *Tracker) Stop(username, asin string) error {
	return t.store.DeleteSubscription(username, asin)
}

// StopAll removes every subscription the user has.
func (t *Tracker) StopAll(username string) error {
	return t.store.DeleteAllSubscriptions(username)
}

// Restart re-subscribes the user to a previously stopped product. The
// stored product is reused when it is still around; if the cleanup sweep
// already removed it the listing is fetched fresh. Resuming is exempt
// from the tracking limit, which only gates new /track requests.
func (t *Tracker) Restart(username, asin string) (*types.Product, error) {
	exists, err := t.store.SubscriptionExists(username, asin)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyTracked
	}

	product, err := t.store.GetProduct(asin)
	if err != nil {
		return nil, err
	}
	if product == nil {
		product, err = t.fetchProduct(asin)
		if err != nil {
			return nil, err
		}
		if err := t.store.CreateProduct(product); err != nil {
			return nil, err
		}
	}

	if err := t.store.CreateSubscription(username, asin); err != nil {
		return nil, err
	}
	return product, nil
}

func (t *Tracker) fetchProduct(asin string) (*types.Product, error) {
	res := t.fetcher.Fetch(asin, "")
	if res.Title == "" && res.Price == "" {
		return nil, ErrUnavailable
	}
	return &types.Product{
		ASIN:  asin,
		Title: res.Title,
		Price: res.Price,
		Stock: res.Stock,
		URL:   res.URL,
	}, nil
}
