package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"depthsim/internal/config"
	"depthsim/internal/infra/network"
	"depthsim/internal/venue"
)

// Adapter streams the Bybit v5 linear orderbook.50 topic. Bybit sends
// bare [price, quantity] pairs, padded to canonical 4-field levels, and
// marks frames as snapshot or delta.
type Adapter struct {
	url       string
	keepAlive time.Duration
	dialer    *websocket.Dialer
	logger    zerolog.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *Adapter {
	return &Adapter{
		url:       cfg.Venues.Bybit.WSURL,
		keepAlive: time.Duration(cfg.Feed.KeepAliveSeconds) * time.Second,
		dialer:    network.NewWSDialer(time.Duration(cfg.Feed.DialTimeoutSeconds) * time.Second),
		logger:    logger.With().Str("venue", "bybit").Logger(),
	}
}

func (a *Adapter) Name() string { return "bybit" }

type opFrame struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type wireMessage struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"` // snapshot | delta
	Op      string `json:"op"`
	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg"`
	Data    *struct {
		B [][]string `json:"b"`
		A [][]string `json:"a"`
	} `json:"data"`
}

func topic(symbol string) string { return "orderbook.50." + symbol }

func (a *Adapter) Stream(ctx context.Context, symbol string) (<-chan venue.Message, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("bybit dial: %w", err)
	}
	if err := conn.WriteJSON(opFrame{Op: "subscribe", Args: []string{topic(symbol)}}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bybit subscribe: %w", err)
	}
	a.logger.Info().Str("symbol", symbol).Msg("subscribed")

	out := make(chan venue.Message, 64)

	go func() {
		ticker := time.NewTicker(a.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteJSON(opFrame{Op: "unsubscribe", Args: []string{topic(symbol)}})
				_ = conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteJSON(opFrame{Op: "ping"})
			}
		}
	}()

	go func() {
		defer close(out)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn().Err(err).Msg("read failed")
				}
				return
			}
			msg, err := decode(data)
			if err != nil {
				a.logger.Debug().Err(err).Msg("message dropped")
				continue
			}
			if msg == nil {
				continue
			}
			select {
			case out <- *msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// decode returns nil for acks, pongs and other control frames.
func decode(data []byte) (*venue.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bybit decode: %w", err)
	}
	if w.Success != nil && !*w.Success {
		return nil, fmt.Errorf("bybit api error: %s", w.RetMsg)
	}
	if w.Data == nil || w.Type == "" {
		return nil, nil
	}
	bids, err := venue.DecodeLevels(w.Data.B)
	if err != nil {
		return nil, fmt.Errorf("bybit bids: %w", err)
	}
	asks, err := venue.DecodeLevels(w.Data.A)
	if err != nil {
		return nil, fmt.Errorf("bybit asks: %w", err)
	}
	kind := venue.KindSnapshot
	if w.Type == "delta" {
		kind = venue.KindUpdate
	}
	return &venue.Message{Kind: kind, Bids: bids, Asks: asks}, nil
}
