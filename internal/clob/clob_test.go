package clob

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSecret() string {
	return base64.URLEncoding.EncodeToString([]byte("test-secret"))
}

func TestFetchBookParsesAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token_id"); got != "tok1" {
			t.Errorf("token_id = %q, want tok1", got)
		}
		w.Write([]byte(`{
			"market": "0xabc",
			"asset_id": "tok1",
			"bids": [{"price": "0.40", "size": "100"}, {"price": "0.45", "size": "50"}],
			"asks": [{"price": "0.55", "size": "80"}, {"price": "0.50", "size": "30"}]
		}`))
	}))
	defer server.Close()

	client := NewBookClient(&BookClientConfig{
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	book, err := client.FetchBook(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("FetchBook: %v", err)
	}

	if book.TokenID != "tok1" {
		t.Errorf("TokenID = %q, want tok1", book.TokenID)
	}
	if best, _ := book.BestBid(); best != 0.45 {
		t.Errorf("best bid = %v, want 0.45", best)
	}
	if best, _ := book.BestAsk(); best != 0.50 {
		t.Errorf("best ask = %v, want 0.50", best)
	}
	if !book.TwoSided() {
		t.Error("expected two-sided book")
	}
}

func TestFetchBookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewBookClient(&BookClientConfig{
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	if _, err := client.FetchBook(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchTickSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"minimum_tick_size": 0.001}`))
	}))
	defer server.Close()

	client := NewBookClient(&BookClientConfig{
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	tick, err := client.FetchTickSize(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("FetchTickSize: %v", err)
	}
	if tick != 0.001 {
		t.Errorf("tick = %v, want 0.001", tick)
	}
}

func TestPlaceOrderSignsAndSubmits(t *testing.T) {
	var sawHeaders atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		for _, h := range []string{"POLY_API_KEY", "POLY_SIGNATURE", "POLY_TIMESTAMP", "POLY_PASSPHRASE", "POLY_ADDRESS"} {
			if r.Header.Get(h) == "" {
				t.Errorf("missing header %s", h)
			}
		}
		sawHeaders.Store(true)
		w.Write([]byte(`{"success": true, "orderID": "0xorder1", "status": "live"}`))
	}))
	defer server.Close()

	client, err := NewOrderClient(&OrderClientConfig{
		BaseURL:    server.URL,
		APIKey:     "key",
		Secret:     testSecret(),
		Passphrase: "pass",
		PrivateKey: testPrivateKey,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOrderClient: %v", err)
	}

	resp, err := client.PlaceOrder(context.Background(), "1234", "BUY", 0.45, 110)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if resp.OrderID != "0xorder1" {
		t.Errorf("OrderID = %q, want 0xorder1", resp.OrderID)
	}
	if !sawHeaders.Load() {
		t.Error("server never saw an authenticated request")
	}
}

func TestPlaceOrderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "errorMsg": "not enough balance"}`))
	}))
	defer server.Close()

	client, err := NewOrderClient(&OrderClientConfig{
		BaseURL:    server.URL,
		APIKey:     "key",
		Secret:     testSecret(),
		Passphrase: "pass",
		PrivateKey: testPrivateKey,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOrderClient: %v", err)
	}

	if _, err := client.PlaceOrder(context.Background(), "1234", "SELL", 0.55, 110); err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestPlaceOrderInvalidSide(t *testing.T) {
	client, err := NewOrderClient(&OrderClientConfig{
		BaseURL:    "http://localhost",
		APIKey:     "key",
		Secret:     testSecret(),
		Passphrase: "pass",
		PrivateKey: testPrivateKey,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOrderClient: %v", err)
	}

	if _, err := client.PlaceOrder(context.Background(), "1234", "HOLD", 0.5, 100); err == nil {
		t.Fatal("expected error for invalid side")
	}
}

func TestCancelOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"canceled": ["0xorder1"], "not_canceled": {}}`))
	}))
	defer server.Close()

	client, err := NewOrderClient(&OrderClientConfig{
		BaseURL:    server.URL,
		APIKey:     "key",
		Secret:     testSecret(),
		Passphrase: "pass",
		PrivateKey: testPrivateKey,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOrderClient: %v", err)
	}

	resp, err := client.CancelOrder(context.Background(), "0xorder1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if len(resp.Canceled) != 1 || resp.Canceled[0] != "0xorder1" {
		t.Errorf("Canceled = %v, want [0xorder1]", resp.Canceled)
	}
}

func TestToRawAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1.0, "1000000"},
		{0.45, "450000"},
		{49.5, "49500000"},
	}
	for _, tc := range cases {
		if got := toRawAmount(tc.in); got != tc.want {
			t.Errorf("toRawAmount(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
