package scraper

import (
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/mah-di/amazon-notifier-bot/internal/metrics"
)

// Result carries the extracted listing fields. An empty string means the
// field could not be read; Fetch never fails outright.
type Result struct {
	ASIN  string
	Title string
	Price string
	Stock string
	URL   string
}

// Config tells the scraper how to reach a product page and which selectors
// hold the interesting fields.
type Config struct {
	URLPrefix string
	URLSuffix string

	TitleSelector string
	PriceSelector string
	StockSelector string

	MaxRetry      int
	RetryInterval time.Duration
	Debug         bool
}

type Scraper struct {
	cfg    Config
	client *http.Client
	sleep  func(time.Duration)
}

func New(cfg Config) *Scraper {
	return &Scraper{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		sleep:  time.Sleep,
	}
}

// ProductURL builds the canonical product URL for an ASIN.
func (s *Scraper) ProductURL(asin string) string {
	return s.cfg.URLPrefix + asin + s.cfg.URLSuffix
}

// Fetch retrieves the product page and extracts title/price/stock. Network
// failures are retried with a fixed sleep; once retries are exhausted the
// all-unknown Result is returned instead of an error so a flaky page can
// never crash the caller. Selector misses on a fetched page simply leave
// the field empty.
func (s *Scraper) Fetch(asin, url string) Result {
	if url == "" {
		url = s.ProductURL(asin)
	}
	res := Result{ASIN: asin, URL: url}

	retries := 0
	for retries <= s.cfg.MaxRetry {
		doc, err := s.get(url)
		if err != nil {
			retries++
			metrics.ScrapeFailures.Inc()
			log.Errorf("Failed to fetch %s: %v. Retrying in %s (%d/%d)", url, err, s.cfg.RetryInterval, retries, s.cfg.MaxRetry)
			if retries <= s.cfg.MaxRetry {
				s.sleep(s.cfg.RetryInterval)
			}
			continue
		}

		res.Title = SelectText(doc, s.cfg.TitleSelector)
		res.Price = SelectText(doc, s.cfg.PriceSelector)
		res.Stock = SelectText(doc, s.cfg.StockSelector)

		if s.cfg.Debug {
			log.Debug(spew.Sdump(res))
		}
		return res
	}

	log.Errorf("Giving up on %s after %d attempts", url, s.cfg.MaxRetry+1)
	return res
}

func (s *Scraper) get(url string) (*html.Node, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	return html.Parse(resp.Body)
}
