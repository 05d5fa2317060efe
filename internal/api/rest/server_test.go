package rest

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"depthsim/internal/config"
	"depthsim/internal/feed"
	"depthsim/internal/orderbook"
	"depthsim/internal/venue"
)

type stubAdapter struct{}

func (stubAdapter) Name() string { return "stub" }
func (stubAdapter) Stream(ctx context.Context, symbol string) (<-chan venue.Message, error) {
	ch := make(chan venue.Message)
	close(ch)
	return ch, nil
}

func lvl(price, qty string) orderbook.Level {
	return orderbook.Level{Price: price, Quantity: qty, Cum: "0", Orders: "0"}
}

func newTestServer(t *testing.T) (*Server, *orderbook.Book) {
	t.Helper()
	cfg := config.Load()
	book := orderbook.NewBook(cfg.Feed.Venue, cfg.Feed.Symbol)
	adapters := map[venue.Venue]venue.Adapter{
		venue.OKX:     stubAdapter{},
		venue.Deribit: stubAdapter{},
	}
	fm, err := feed.New(cfg, book, adapters, zerolog.Nop())
	if err != nil {
		t.Fatalf("feed init: %v", err)
	}
	return New(cfg, book, fm, zerolog.Nop()), book
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestBookEndpoint(t *testing.T) {
	s, book := newTestServer(t)
	book.ProcessSnapshot(
		[]orderbook.Level{lvl("99", "1"), lvl("98", "1"), lvl("97", "1")},
		[]orderbook.Level{lvl("100", "1")},
	)

	rec := do(t, s, http.MethodGet, "/book?depth=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp.Bids) != 2 || len(resp.Asks) != 1 {
		t.Fatalf("depth limit not applied: %d bids %d asks", len(resp.Bids), len(resp.Asks))
	}
	if resp.Bids[0].Price != "99" {
		t.Fatalf("best bid first, got %s", resp.Bids[0].Price)
	}

	if rec := do(t, s, http.MethodGet, "/book?depth=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad depth must 400, got %d", rec.Code)
	}
}

func TestSimulateMarketOrder(t *testing.T) {
	s, book := newTestServer(t)
	book.ProcessSnapshot(nil, []orderbook.Level{lvl("100", "2"), lvl("101", "3")})

	rec := do(t, s, http.MethodPost, "/simulate", `{"side":"Buy","price":-1,"quantity":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp simulateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if math.Abs(resp.Metrics.EstimatedFillPrice-100.5) > 1e-9 {
		t.Fatalf("fill price %v", resp.Metrics.EstimatedFillPrice)
	}
	if math.Abs(resp.Metrics.MarketImpact-402) > 1e-9 {
		t.Fatalf("impact %v", resp.Metrics.MarketImpact)
	}
	if resp.SelectedIndex != -1 {
		t.Fatalf("market orders select no level, got %d", resp.SelectedIndex)
	}
	if book.Order() == nil {
		t.Fatalf("simulated order must be stored as active")
	}
}

func TestSimulateLimitOrderSelectsLevel(t *testing.T) {
	s, book := newTestServer(t)
	book.ProcessSnapshot([]orderbook.Level{lvl("100", "1"), lvl("99", "1")}, nil)

	rec := do(t, s, http.MethodPost, "/simulate", `{"side":"Buy","price":99.5,"quantity":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp simulateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.SelectedSide != "bid" || resp.SelectedIndex != 1 {
		t.Fatalf("expected bid index 1, got %s %d", resp.SelectedSide, resp.SelectedIndex)
	}
	// limit orders bypass the walk
	if resp.Metrics.EstimatedFillPrice != 99.5 || resp.Metrics.FillPercentage != 100 {
		t.Fatalf("limit bypass metrics wrong: %+v", resp.Metrics)
	}
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	s, _ := newTestServer(t)

	for _, body := range []string{
		`{"side":"Buy","price":-1,"quantity":0}`,
		`{"side":"Hold","price":-1,"quantity":1}`,
		`not json`,
	} {
		if rec := do(t, s, http.MethodPost, "/simulate", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestClearSimulation(t *testing.T) {
	s, book := newTestServer(t)
	book.SubmitOrder(&orderbook.SimulatedOrder{Side: orderbook.Buy, Price: -1, Quantity: 1})

	if rec := do(t, s, http.MethodDelete, "/simulate", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if book.Order() != nil {
		t.Fatalf("order not cleared")
	}
}

func TestSubscribeSwitches(t *testing.T) {
	s, book := newTestServer(t)
	book.ProcessSnapshot([]orderbook.Level{lvl("99", "1")}, nil)

	rec := do(t, s, http.MethodPost, "/subscribe", `{"venue":"Deribit","symbol":"ETH-USD"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if book.Venue() != "Deribit" || book.Symbol() != "ETH-USD" {
		t.Fatalf("book not retargeted: %s %s", book.Venue(), book.Symbol())
	}
	if bids, _ := book.Depths(); bids != 0 {
		t.Fatalf("book must reset on switch")
	}

	if rec := do(t, s, http.MethodPost, "/subscribe", `{"venue":"nyse","symbol":"BTC-USD"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown venue must 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/subscribe", `{"venue":"OKX","symbol":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty symbol must 400, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, book := newTestServer(t)
	book.SetConnected(true)

	rec := do(t, s, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !resp.Connected || resp.Venue != "OKX" {
		t.Fatalf("unexpected status: %+v", resp)
	}
}
