package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.DBPath != "data/bot.db" {
		t.Errorf("got db path %q", cfg.DBPath)
	}
	if cfg.URLPrefix != "https://www.amazon.com/dp/" {
		t.Errorf("got url prefix %q", cfg.URLPrefix)
	}
	if cfg.MaxRequests != 5 {
		t.Errorf("got max requests %d", cfg.MaxRequests)
	}
	if cfg.MaxScrapingRetry != 3 || cfg.RetryScrapingInterval != 5*time.Second {
		t.Errorf("got scraping retry %d / %s", cfg.MaxScrapingRetry, cfg.RetryScrapingInterval)
	}
	if cfg.UpdateInterval != 8*time.Minute {
		t.Errorf("got update interval %s", cfg.UpdateInterval)
	}
	if cfg.CleanupInterval != 15*time.Minute {
		t.Errorf("got cleanup interval %s", cfg.CleanupInterval)
	}
	if cfg.UpdateConcurrency != 10 {
		t.Errorf("got concurrency %d", cfg.UpdateConcurrency)
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"  ", 0},
		{"B0TESTASIN", 1},
		{"B0TESTASIN,B0OTHERSIN", 2},
		{" B0TESTASIN , , B0OTHERSIN ", 2},
	}

	for _, c := range cases {
		if got := splitList(c.raw); len(got) != c.want {
			t.Errorf("splitList(%q) = %v, want %d entries", c.raw, got, c.want)
		}
	}
}
