// Package feed owns the venue subscription lifecycle. It is the single
// writer path into the book: one worker applies stream messages, and a
// venue/symbol switch fully tears the old stream down before the new one
// starts, so messages from a superseded subscription never reach the
// book.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"depthsim/internal/config"
	"depthsim/internal/infra/health"
	"depthsim/internal/infra/metrics"
	"depthsim/internal/infra/network"
	"depthsim/internal/orderbook"
	"depthsim/internal/venue"
)

type Manager struct {
	cfg      config.Config
	book     *orderbook.Book
	adapters map[venue.Venue]venue.Adapter
	logger   zerolog.Logger
	bucket   *network.TokenBucket

	mu       sync.Mutex
	venue    venue.Venue
	symbol   string
	epoch    int
	switchCh chan struct{}
}

func New(cfg config.Config, book *orderbook.Book, adapters map[venue.Venue]venue.Adapter, logger zerolog.Logger) (*Manager, error) {
	v, err := venue.Parse(cfg.Feed.Venue)
	if err != nil {
		return nil, fmt.Errorf("feed: configured venue %q: %w", cfg.Feed.Venue, err)
	}
	if _, ok := adapters[v]; !ok {
		return nil, fmt.Errorf("feed: no adapter for venue %s", v)
	}
	m := &Manager{
		cfg:      cfg,
		book:     book,
		adapters: adapters,
		logger:   logger.With().Str("component", "feed").Logger(),
		bucket:   network.NewTokenBucket(cfg.Feed.ReconnectBurst, cfg.Feed.ReconnectsPerMinute/60.0),
		venue:    v,
		symbol:   cfg.Feed.Symbol,
		switchCh: make(chan struct{}, 1),
	}
	book.Subscribe(func() {
		bids, asks := book.Depths()
		metrics.BookDepth.WithLabelValues("bid").Set(float64(bids))
		metrics.BookDepth.WithLabelValues("ask").Set(float64(asks))
	})
	return m, nil
}

// Switch retargets the feed to a new (venue, symbol) pair. The book is
// hard-reset immediately; the worker abandons the superseded stream and
// redials. Either argument may repeat the current value.
func (m *Manager) Switch(venueName, symbol string) error {
	v, err := venue.Parse(venueName)
	if err != nil {
		return err
	}
	if _, ok := m.adapters[v]; !ok {
		return fmt.Errorf("feed: no adapter for venue %s", v)
	}

	// The target update and the book reset happen under the same mutex
	// the worker holds across its epoch check and apply, so a stream
	// message can never land on the reset book.
	m.mu.Lock()
	m.venue = v
	m.symbol = symbol
	m.epoch++
	m.book.SelectVenue(string(v))
	m.book.SelectSymbol(symbol)
	m.mu.Unlock()
	metrics.SubscriptionSwitches.Inc()

	select {
	case m.switchCh <- struct{}{}:
	default: // a switch is already pending; the worker reads fresh state
	}
	return nil
}

// Current returns the active (venue, symbol) target.
func (m *Manager) Current() (venue.Venue, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.venue, m.symbol
}

// Run drives the stream until ctx is cancelled. Connection loss
// reconnects under the token-bucket limit; a switch abandons the old
// stream first.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := m.waitForToken(ctx); err != nil {
			return nil
		}

		// A switch token left over from an epoch-mismatch exit would
		// tear the fresh stream down immediately. Drain it before the
		// state read below, which observes the switch either way.
		select {
		case <-m.switchCh:
		default:
		}

		m.mu.Lock()
		v, symbol, epoch := m.venue, m.symbol, m.epoch
		m.mu.Unlock()

		adapter := m.adapters[v]
		instrument := venue.FormatSymbol(symbol, v)

		streamCtx, cancel := context.WithCancel(ctx)
		stream, err := adapter.Stream(streamCtx, instrument)
		if err != nil {
			cancel()
			m.logger.Warn().Err(err).Str("venue", adapter.Name()).Str("instrument", instrument).Msg("stream failed to start")
			metrics.WSReconnectsTotal.WithLabelValues(adapter.Name(), "dial_error").Inc()
			continue
		}

		m.logger.Info().Str("venue", adapter.Name()).Str("instrument", instrument).Int("epoch", epoch).Msg("stream established")
		m.book.SetConnected(true)
		metrics.ConnectionUp.Set(1)
		health.SetReady(true)

		reason := m.consume(ctx, stream, adapter.Name(), epoch)
		cancel()
		m.book.SetConnected(false)
		metrics.ConnectionUp.Set(0)

		switch reason {
		case "shutdown":
			return nil
		case "switch":
			// book already reset in Switch; redial immediately
		default:
			metrics.WSReconnectsTotal.WithLabelValues(adapter.Name(), reason).Inc()
		}
	}
}

// consume applies stream messages until shutdown, a switch, or
// connection loss. It returns the reason the stream ended. Messages
// tagged to a superseded epoch are discarded, never applied: the book
// was already reset for the new subscription.
func (m *Manager) consume(ctx context.Context, stream <-chan venue.Message, venueName string, epoch int) string {
	for {
		select {
		case <-ctx.Done():
			return "shutdown"
		case <-m.switchCh:
			return "switch"
		case msg, ok := <-stream:
			if !ok {
				return "connection_lost"
			}
			// Epoch check and apply stay under one critical section
			// with Switch's increment-and-reset.
			m.mu.Lock()
			if m.epoch != epoch {
				m.mu.Unlock()
				metrics.MessagesDroppedTotal.WithLabelValues(venueName, "stale_subscription").Inc()
				return "switch"
			}
			m.apply(msg, venueName)
			m.mu.Unlock()
		}
	}
}

func (m *Manager) apply(msg venue.Message, venueName string) {
	start := time.Now()
	var dropped int
	switch msg.Kind {
	case venue.KindSnapshot:
		dropped = m.book.ProcessSnapshot(msg.Bids, msg.Asks)
	case venue.KindUpdate:
		dropped = m.book.ProcessUpdate(msg.Bids, msg.Asks)
	default:
		metrics.MessagesDroppedTotal.WithLabelValues(venueName, "unknown_kind").Inc()
		return
	}
	metrics.MessagesTotal.WithLabelValues(venueName, string(msg.Kind)).Inc()
	metrics.ApplyLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if dropped > 0 {
		// Bad levels degrade silently: skip them, keep the connection up.
		metrics.MalformedLevelsTotal.Add(float64(dropped))
		m.logger.Debug().Int("dropped", dropped).Str("venue", venueName).Msg("malformed levels skipped")
	}
}

func (m *Manager) waitForToken(ctx context.Context) error {
	for !m.bucket.Allow(time.Now()) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}
