package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestPricesFetchAndCache(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("symbols"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"WLD":{"usd":1.25,"last_updated":"2024-05-01T12:00:00Z"},"ETH":{"usd":3000.5,"last_updated":"2024-05-01T12:00:00Z"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	ctx := context.Background()

	prices, err := c.Prices(ctx, []string{"WLD", "ETH", "WLD"})
	if err != nil {
		t.Fatalf("prices: %v", err)
	}
	if prices["WLD"].USD != 1.25 || prices["ETH"].USD != 3000.5 {
		t.Fatalf("prices = %+v", prices)
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !prices["ETH"].LastUpdated.Equal(want) {
		t.Fatalf("last_updated = %v", prices["ETH"].LastUpdated)
	}

	p, ok, err := c.Price(ctx, "WLD")
	if err != nil || !ok || p.USD != 1.25 {
		t.Fatalf("cached price = %+v %v %v", p, ok, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 1 || queries[0] != "ETH,WLD" {
		t.Fatalf("queries = %v", queries)
	}
}

func TestPricesUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	_, ok, err := c.Price(context.Background(), "NOPE")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestPricesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	if _, err := c.Prices(context.Background(), []string{"WLD"}); err == nil {
		t.Fatalf("expected error")
	}
}
