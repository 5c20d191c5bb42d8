package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mah-di/amazon-notifier-bot/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testProduct(asin string) *types.Product {
	return &types.Product{
		ASIN:  asin,
		Title: "Example Product",
		Price: "$19.99",
		Stock: "In Stock",
		URL:   "https://www.amazon.com/dp/" + asin + "/?language=en_US",
	}
}

func TestProductRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if p, err := db.GetProduct("B0TESTASIN"); err != nil || p != nil {
		t.Fatalf("unknown product should be nil, nil; got %v, %v", p, err)
	}

	created := testProduct("B0TESTASIN")
	if err := db.CreateProduct(created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 {
		t.Error("insert should backfill the row id")
	}

	got, err := db.GetProduct("B0TESTASIN")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != "Example Product" || got.Price != "$19.99" {
		t.Errorf("got %+v", got)
	}
	if got.LastChecked.IsZero() || got.LastUpdated.IsZero() {
		t.Errorf("timestamps should round-trip, got %+v", got)
	}
}

func TestSaveProductData(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))

	before, _ := db.GetProduct("B0TESTASIN")
	time.Sleep(1100 * time.Millisecond)

	if err := db.SaveProductData("B0TESTASIN", "New Title", "$14.99", "Currently unavailable"); err != nil {
		t.Fatal(err)
	}

	after, _ := db.GetProduct("B0TESTASIN")
	if after.Title != "New Title" || after.Price != "$14.99" || after.Stock != "Currently unavailable" {
		t.Errorf("got %+v", after)
	}
	if !after.LastUpdated.After(before.LastUpdated) {
		t.Error("save should bump last_updated")
	}
	if !after.LastChecked.After(before.LastChecked) {
		t.Error("save should bump last_checked")
	}

	// Updating a vanished product is a no-op.
	if err := db.SaveProductData("B0MISSINGX", "x", "x", "x"); err != nil {
		t.Errorf("got %v", err)
	}
}

func TestTouchProduct(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))

	before, _ := db.GetProduct("B0TESTASIN")
	time.Sleep(1100 * time.Millisecond)

	if err := db.TouchProduct("B0TESTASIN"); err != nil {
		t.Fatal(err)
	}

	after, _ := db.GetProduct("B0TESTASIN")
	if !after.LastChecked.After(before.LastChecked) {
		t.Error("touch should bump last_checked")
	}
	if !after.LastUpdated.Equal(before.LastUpdated) {
		t.Error("touch must not bump last_updated")
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))

	exists, err := db.SubscriptionExists("alice", "B0TESTASIN")
	if err != nil || exists {
		t.Fatalf("got %v, %v", exists, err)
	}

	if err := db.CreateSubscription("alice", "B0TESTASIN"); err != nil {
		t.Fatal(err)
	}
	// Duplicate insert is a no-op.
	if err := db.CreateSubscription("alice", "B0TESTASIN"); err != nil {
		t.Fatal(err)
	}

	if exists, _ = db.SubscriptionExists("alice", "B0TESTASIN"); !exists {
		t.Error("subscription should exist")
	}
	if n, _ := db.CountSubscriptions("alice"); n != 1 {
		t.Errorf("duplicate insert should not double count, got %d", n)
	}

	if err := db.DeleteSubscription("alice", "B0TESTASIN"); err != nil {
		t.Fatal(err)
	}
	if exists, _ = db.SubscriptionExists("alice", "B0TESTASIN"); exists {
		t.Error("subscription should be gone")
	}
	// Deleting a missing pair is a no-op.
	if err := db.DeleteSubscription("alice", "B0TESTASIN"); err != nil {
		t.Errorf("got %v", err)
	}
}

func TestDeleteAllSubscriptions(t *testing.T) {
	db := openTestDB(t)
	db.CreateSubscription("alice", "B0TESTASIN")
	db.CreateSubscription("alice", "B0OTHERSIN")
	db.CreateSubscription("bob", "B0TESTASIN")

	if err := db.DeleteAllSubscriptions("alice"); err != nil {
		t.Fatal(err)
	}

	if n, _ := db.CountSubscriptions("alice"); n != 0 {
		t.Errorf("alice should have no subscriptions, got %d", n)
	}
	if n, _ := db.CountSubscriptions("bob"); n != 1 {
		t.Errorf("bob should be untouched, got %d", n)
	}
}

func TestSubscribersOf(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))

	alice, err := db.GetOrCreateUser(1, "Alice", "", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !alice.StockNotification {
		t.Error("new users should start with stock notifications on")
	}
	db.GetOrCreateUser(2, "Bob", "", "bob")
	db.GetOrCreateUser(3, "Carol", "", "carol")

	db.CreateSubscription("alice", "B0TESTASIN")
	db.CreateSubscription("bob", "B0TESTASIN")

	users, err := db.SubscribersOf("B0TESTASIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d subscribers", len(users))
	}

	if n, _ := db.CountSubscribersOf("B0TESTASIN"); n != 2 {
		t.Errorf("got %d", n)
	}
}

func TestProductsOf(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))
	db.CreateProduct(testProduct("B0OTHERSIN"))
	db.GetOrCreateUser(1, "Alice", "", "alice")

	db.CreateSubscription("alice", "B0TESTASIN")

	products, err := db.ProductsOf(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].ASIN != "B0TESTASIN" {
		t.Errorf("got %+v", products)
	}
}

func TestGetOrCreateUserIsStable(t *testing.T) {
	db := openTestDB(t)

	first, err := db.GetOrCreateUser(1, "Alice", "Smith", "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.GetOrCreateUser(1, "Alice", "Smith", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("repeat lookups should return the same row, got %d and %d", first.ID, second.ID)
	}
}

func TestDeleteProductRemovesHistory(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))
	db.AddPricePoint("B0TESTASIN", 19.99)
	db.AddPricePoint("B0TESTASIN", 17.49)

	if err := db.DeleteProduct("B0TESTASIN"); err != nil {
		t.Fatal(err)
	}

	if p, _ := db.GetProduct("B0TESTASIN"); p != nil {
		t.Error("product should be gone")
	}
	points, err := db.PriceHistory("B0TESTASIN", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 0 {
		t.Errorf("history should be gone, got %+v", points)
	}
}

func TestPriceHistoryOrdering(t *testing.T) {
	db := openTestDB(t)
	db.CreateProduct(testProduct("B0TESTASIN"))

	db.AddPricePoint("B0TESTASIN", 24.99)
	db.AddPricePoint("B0TESTASIN", 19.99)

	points, err := db.PriceHistory("B0TESTASIN", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points", len(points))
	}
	if points[0].Price != 24.99 || points[1].Price != 19.99 {
		t.Errorf("points should come back oldest first, got %+v", points)
	}
	if points[0].RecordedAt.After(points[1].RecordedAt) {
		t.Error("recorded_at should be non-decreasing")
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetMetric("commands_processed"); err != nil || v != 0 {
		t.Fatalf("missing metric should read as 0, got %v, %v", v, err)
	}

	if err := db.SaveMetric("commands_processed", "", "", 42); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMetric("commands_processed", "", "", 43); err != nil {
		t.Fatal(err)
	}

	if v, _ := db.GetMetric("commands_processed"); v != 43 {
		t.Errorf("got %v", v)
	}

	db.SaveMetric("messages_per_channel", "123", "PrivateChat-123", 7)
	labeled, err := db.GetMetricsWithLabels("messages_per_channel")
	if err != nil {
		t.Fatal(err)
	}
	if labeled["123"]["PrivateChat-123"] != 7 {
		t.Errorf("got %+v", labeled)
	}
}
