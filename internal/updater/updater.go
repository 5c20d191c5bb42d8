package updater

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mah-di/amazon-notifier-bot/internal/metrics"
	"github.com/mah-di/amazon-notifier-bot/internal/scraper"
	"github.com/mah-di/amazon-notifier-bot/internal/types"
	"github.com/mah-di/amazon-notifier-bot/lib/helpers"
)

// Store is the slice of the database the sweeps need.
type Store interface {
	AllProducts() ([]types.Product, error)
	SaveProductData(asin, title, price, stock string) error
	TouchProduct(asin string) error
	DeleteProduct(asin string) error
	SubscribersOf(asin string) ([]types.User, error)
	CountSubscribersOf(asin string) (int, error)
	AddPricePoint(asin string, price float64) error
}

type Fetcher interface {
	Fetch(asin, url string) scraper.Result
}

// Notifier delivers an already-rendered message; delivery retries live
// behind this interface.
type Notifier interface {
	Notify(chatID int64, text string)
}

type Config struct {
	UpdateInterval  time.Duration
	CleanupInterval time.Duration
	Concurrency     int

	AdminChatID int64
	AdminASINs  []string
}

type Updater struct {
	store    Store
	fetcher  Fetcher
	notifier Notifier
	cfg      Config

	adminASINs map[string]bool

	updateMux  sync.Mutex
	cleanupMux sync.Mutex
}

func New(store Store, fetcher Fetcher, notifier Notifier, cfg Config) *Updater {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	watched := make(map[string]bool, len(cfg.AdminASINs))
	for _, asin := range cfg.AdminASINs {
		watched[asin] = true
	}
	return &Updater{
		store:      store,
		fetcher:    fetcher,
		notifier:   notifier,
		cfg:        cfg,
		adminASINs: watched,
	}
}

// Start runs the update sweep forever, one sweep per interval. A
// panicking sweep is recovered and the next interval runs normally.
func (u *Updater) Start() {
	log.Info("Update service started")
	for {
		runRecovered("update sweep", u.RunOnce)
		time.Sleep(u.cfg.UpdateInterval)
	}
}

// StartCleanup runs the cleanup sweep forever.
func (u *Updater) StartCleanup() {
	log.Info("Cleanup service started")
	for {
		runRecovered("cleanup sweep", u.CleanUp)
		time.Sleep(u.cfg.CleanupInterval)
	}
}

func runRecovered(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic in %s: %v", name, r)
		}
	}()
	fn()
}

// RunOnce re-checks every stored product against the live listing,
// fanning out over a bounded number of workers. A panicking check is
// recovered so one bad product cannot take the sweep down.
func (u *Updater) RunOnce() {
	u.updateMux.Lock()
	defer u.updateMux.Unlock()

	products, err := u.store.AllProducts()
	if err != nil {
		log.Errorf("Update sweep could not list products: %v", err)
		return
	}
	metrics.TrackedProducts.Set(float64(len(products)))

	sem := make(chan struct{}, u.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, p := range products {
		wg.Add(1)
		sem <- struct{}{}
		go func(p types.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("Recovered from panic while checking %s: %v", p.ASIN, r)
				}
			}()
			u.checkProduct(p)
		}(p)
	}
	wg.Wait()
}

func (u *Updater) checkProduct(stored types.Product) {
	metrics.UpdateChecks.Inc()
	res := u.fetcher.Fetch(stored.ASIN, stored.URL)

	titleChanged := res.Title != stored.Title
	priceChanged := helpers.ComparablePrice(res.Price) != helpers.ComparablePrice(stored.Price)
	stockChanged := res.Stock != stored.Stock

	if !titleChanged && !priceChanged && !stockChanged {
		if err := u.store.TouchProduct(stored.ASIN); err != nil {
			log.Errorf("Failed to touch %s: %v", stored.ASIN, err)
		}
		u.maybeNotifyAdmin(stored)
		return
	}

	// A fetch that lost both title and price is a flaky page, not a real
	// listing change. Stock alone may still be meaningful, but an empty
	// stock on such a fetch is just as unknown as the rest.
	if res.Title == "" && res.Price == "" && (titleChanged || priceChanged) {
		if res.Stock != "" && stockChanged {
			if err := u.store.SaveProductData(stored.ASIN, stored.Title, stored.Price, res.Stock); err != nil {
				log.Errorf("Failed to save stock for %s: %v", stored.ASIN, err)
			}
			return
		}
		if err := u.store.TouchProduct(stored.ASIN); err != nil {
			log.Errorf("Failed to touch %s: %v", stored.ASIN, err)
		}
		return
	}

	if err := u.store.SaveProductData(stored.ASIN, res.Title, res.Price, res.Stock); err != nil {
		log.Errorf("Failed to save %s: %v", stored.ASIN, err)
		return
	}

	if v := helpers.ComparablePrice(res.Price); priceChanged && v >= 0 {
		if err := u.store.AddPricePoint(stored.ASIN, v); err != nil {
			log.Errorf("Failed to record price point for %s: %v", stored.ASIN, err)
		}
	}

	if !priceChanged && !stockChanged {
		return
	}

	u.notifyUpdate(stored, res, priceChanged)
}

// notifyUpdate fans the rendered alert out to subscribers. Price changes
// go to everyone; pure stock changes only to users who opted in.
func (u *Updater) notifyUpdate(stored types.Product, res scraper.Result, priceChanged bool) {
	subscribers, err := u.store.SubscribersOf(stored.ASIN)
	if err != nil {
		log.Errorf("Could not list subscribers of %s: %v", stored.ASIN, err)
		return
	}

	updated := stored
	updated.Title = res.Title
	updated.Price = res.Price
	updated.Stock = res.Stock
	updated.LastChecked = time.Now()

	var text string
	if priceChanged {
		text = helpers.UpdateMessage(updated, stored.Price, false)
	} else {
		text = helpers.UpdateMessage(updated, "", true)
	}

	for _, user := range subscribers {
		if !priceChanged && !user.StockNotification {
			continue
		}
		u.notifier.Notify(user.ChatID, text)
	}
}

// maybeNotifyAdmin sends a liveness ping for watched ASINs so an operator
// can tell the sweep is alive even when nothing changes.
func (u *Updater) maybeNotifyAdmin(p types.Product) {
	if u.cfg.AdminChatID == 0 || !u.adminASINs[p.ASIN] {
		return
	}
	p.LastChecked = time.Now()
	u.notifier.Notify(u.cfg.AdminChatID, helpers.AdminMessage(p))
}

// CleanUp deletes products nobody subscribes to anymore.
func (u *Updater) CleanUp() {
	u.cleanupMux.Lock()
	defer u.cleanupMux.Unlock()

	products, err := u.store.AllProducts()
	if err != nil {
		log.Errorf("Cleanup sweep could not list products: %v", err)
		return
	}

	for _, p := range products {
		count, err := u.store.CountSubscribersOf(p.ASIN)
		if err != nil {
			log.Errorf("Cleanup could not count subscribers of %s: %v", p.ASIN, err)
			continue
		}
		if count > 0 {
			continue
		}
		if err := u.store.DeleteProduct(p.ASIN); err != nil {
			log.Errorf("Cleanup could not delete %s: %v", p.ASIN, err)
			continue
		}
		log.Infof("Cleaned up %s", p.ASIN)
	}
}
