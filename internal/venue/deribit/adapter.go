package deribit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"depthsim/internal/config"
	"depthsim/internal/infra/network"
	"depthsim/internal/orderbook"
	"depthsim/internal/venue"
)

// Adapter streams the Deribit book.{instrument}.100ms channel over
// JSON-RPC. Deribit levels arrive as positional [action, price, qty]
// triplets with numeric price and quantity; a "delete" action carries a
// zero quantity, which the reconciler already treats as removal.
type Adapter struct {
	url       string
	keepAlive time.Duration
	dialer    *websocket.Dialer
	logger    zerolog.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *Adapter {
	return &Adapter{
		url:       cfg.Venues.Deribit.WSURL,
		keepAlive: time.Duration(cfg.Feed.KeepAliveSeconds) * time.Second,
		dialer:    network.NewWSDialer(time.Duration(cfg.Feed.DialTimeoutSeconds) * time.Second),
		logger:    logger.With().Str("venue", "deribit").Logger(),
	}
}

func (a *Adapter) Name() string { return "deribit" }

type rpcFrame struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Channels []string `json:"channels,omitempty"`
}

func channel(symbol string) string { return "book." + symbol + ".100ms" }

type wireMessage struct {
	Method string `json:"method"`
	Params struct {
		Channel string `json:"channel"`
		Data    *struct {
			Type string  `json:"type"` // snapshot | change
			Bids [][]any `json:"bids"`
			Asks [][]any `json:"asks"`
		} `json:"data"`
	} `json:"params"`
}

func (a *Adapter) Stream(ctx context.Context, symbol string) (<-chan venue.Message, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("deribit dial: %w", err)
	}
	sub := rpcFrame{JSONRPC: "2.0", Method: "public/subscribe", Params: rpcParams{Channels: []string{channel(symbol)}}}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("deribit subscribe: %w", err)
	}
	a.logger.Info().Str("symbol", symbol).Msg("subscribed")

	out := make(chan venue.Message, 64)

	go func() {
		ticker := time.NewTicker(a.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				unsub := rpcFrame{JSONRPC: "2.0", Method: "public/unsubscribe", Params: rpcParams{Channels: []string{channel(symbol)}}}
				_ = conn.WriteJSON(unsub)
				_ = conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteJSON(rpcFrame{JSONRPC: "2.0", Method: "public/test"})
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

// decode returns nil for heartbeats, test replies and RPC acks.
func decode(data []byte) (*venue.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // keep wire precision when re-rendering numbers
	var w wireMessage
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("deribit decode: %w", err)
	}
	if w.Method != "subscription" || w.Params.Data == nil {
		return nil, nil
	}
	bids, err := decodeLevels(w.Params.Data.Bids)
	if err != nil {
		return nil, fmt.Errorf("deribit bids: %w", err)
	}
	asks, err := decodeLevels(w.Params.Data.Asks)
	if err != nil {
		return nil, fmt.Errorf("deribit asks: %w", err)
	}
	kind := venue.KindUpdate
	if w.Params.Data.Type == "snapshot" {
		kind = venue.KindSnapshot
	}
	return &venue.Message{Kind: kind, Bids: bids, Asks: asks}, nil
}

// decodeLevels renders [action, price, qty] triplets back to canonical
// string levels. The action itself is redundant with the quantity.
func decodeLevels(raw [][]any) ([]orderbook.Level, error) {
	if !lo.EveryBy(raw, wellFormed) {
		return nil, venue.ErrDecode
	}
	return lo.Map(raw, func(l []any, _ int) orderbook.Level {
		return orderbook.Level{
			Price:    l[1].(json.Number).String(),
			Quantity: l[2].(json.Number).String(),
			Cum:      "0",
			Orders:   "0",
		}
	}), nil
}

func wellFormed(l []any) bool {
	if len(l) < 3 {
		return false
	}
	_, pok := l[1].(json.Number)
	_, qok := l[2].(json.Number)
	return pok && qok
}
