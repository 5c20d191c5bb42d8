package scraper

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const productPage = `<html><body>
<span id="productTitle">  Example Product  </span>
<div id="corePrice_feature_div"><span class="a-offscreen">$19.99</span></div>
<div id="availability"><span class="a-size-medium">  In Stock  </span></div>
</body></html>`

func testConfig() Config {
	return Config{
		TitleSelector: "#productTitle",
		PriceSelector: "#corePrice_feature_div .a-offscreen",
		StockSelector: "#availability span",
		MaxRetry:      2,
		RetryInterval: time.Second,
	}
}

func newTestScraper(cfg Config) (*Scraper, *int) {
	s := New(cfg)
	slept := 0
	s.sleep = func(time.Duration) { slept++ }
	return s, &slept
}

func TestFetchExtractsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	s, _ := newTestScraper(testConfig())
	res := s.Fetch("B0TESTASIN", srv.URL)

	if res.Title != "Example Product" {
		t.Errorf("got title %q", res.Title)
	}
	if res.Price != "$19.99" {
		t.Errorf("got price %q", res.Price)
	}
	if res.Stock != "In Stock" {
		t.Errorf("got stock %q", res.Stock)
	}
	if res.ASIN != "B0TESTASIN" {
		t.Errorf("got asin %q", res.ASIN)
	}
}

func TestFetchMissingSelectorsLeaveFieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><span id="productTitle">Only Title</span></body></html>`))
	}))
	defer srv.Close()

	s, _ := newTestScraper(testConfig())
	res := s.Fetch("B0TESTASIN", srv.URL)

	if res.Title != "Only Title" {
		t.Errorf("got title %q", res.Title)
	}
	if res.Price != "" || res.Stock != "" {
		t.Errorf("missing selectors should yield empty fields, got %q / %q", res.Price, res.Stock)
	}
}

func TestFetchRetriesThenGivesUp(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, slept := newTestScraper(testConfig())
	res := s.Fetch("B0TESTASIN", srv.URL)

	if attempts != 3 {
		t.Errorf("expected MaxRetry+1 attempts, got %d", attempts)
	}
	if *slept != 2 {
		t.Errorf("expected a sleep between attempts only, got %d", *slept)
	}
	if res.Title != "" || res.Price != "" || res.Stock != "" {
		t.Errorf("exhausted fetch should return all-unknown result, got %+v", res)
	}
	if res.ASIN != "B0TESTASIN" || res.URL != srv.URL {
		t.Errorf("identity fields should survive failure, got %+v", res)
	}
}

func TestFetchRecoversOnRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	s, _ := newTestScraper(testConfig())
	res := s.Fetch("B0TESTASIN", srv.URL)

	if res.Title != "Example Product" {
		t.Errorf("expected recovery on second attempt, got %+v", res)
	}
}

func TestProductURL(t *testing.T) {
	cfg := testConfig()
	cfg.URLPrefix = "https://www.amazon.com/dp/"
	cfg.URLSuffix = "/?language=en_US"
	s := New(cfg)

	got := s.ProductURL("B0TESTASIN")
	if got != "https://www.amazon.com/dp/B0TESTASIN/?language=en_US" {
		t.Errorf("got %q", got)
	}
}

func TestSelectTextDescendantChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<div class="a-offscreen">$99.99</div>
<div id="corePrice_feature_div"><p><span class="a-offscreen">$19.99</span></p></div>
</body></html>`))
	}))
	defer srv.Close()

	s, _ := newTestScraper(testConfig())
	res := s.Fetch("B0TESTASIN", srv.URL)

	if res.Price != "$19.99" {
		t.Errorf("descendant chain should skip the top-level match, got %q", res.Price)
	}
}
