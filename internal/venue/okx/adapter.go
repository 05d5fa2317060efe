package okx

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

// Adapter streams the OKX v5 public "books" channel. OKX delivers full
// 4-tuple levels and tags every data frame with an action of snapshot
// or update.
type Adapter struct {
	url       string
	keepAlive time.Duration
	dialer    *websocket.Dialer
	logger    zerolog.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *Adapter {
	return &Adapter{
		url:       cfg.Venues.OKX.WSURL,
		keepAlive: time.Duration(cfg.Feed.KeepAliveSeconds) * time.Second,
		dialer:    network.NewWSDialer(time.Duration(cfg.Feed.DialTimeoutSeconds) * time.Second),
		logger:    logger.With().Str("venue", "okx").Logger(),
	}
}

func (a *Adapter) Name() string { return "okx" }

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subFrame struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

type wireMessage struct {
	Event  string `json:"event"`
	Msg    string `json:"msg"`
	Action string `json:"action"`
	Data   []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	} `json:"data"`
}

func (a *Adapter) Stream(ctx context.Context, symbol string) (<-chan venue.Message, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("okx dial: %w", err)
	}
	sub := subFrame{Op: "subscribe", Args: []subArg{{Channel: "books", InstID: symbol}}}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("okx subscribe: %w", err)
	}
	a.logger.Info().Str("symbol", symbol).Msg("subscribed")

	out := make(chan venue.Message, 64)

	go func() {
		ticker := time.NewTicker(a.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				unsub := subFrame{Op: "unsubscribe", Args: []subArg{{Channel: "books", InstID: symbol}}}
				_ = conn.WriteJSON(unsub)
				_ = conn.Close()
				return
			case <-ticker.C:
				// OKX heartbeats with a bare text ping
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
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

// decode returns nil for control frames that carry no book data.
func decode(data []byte) (*venue.Message, error) {
	if string(data) == "pong" {
		return nil, nil
	}
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("okx decode: %w", err)
	}
	if w.Event == "error" {
		return nil, fmt.Errorf("okx api error: %s", w.Msg)
	}
	if w.Event != "" || w.Action == "" || len(w.Data) == 0 {
		return nil, nil
	}
	bids, err := venue.DecodeLevels(w.Data[0].Bids)
	if err != nil {
		return nil, fmt.Errorf("okx bids: %w", err)
	}
	asks, err := venue.DecodeLevels(w.Data[0].Asks)
	if err != nil {
		return nil, fmt.Errorf("okx asks: %w", err)
	}
	kind := venue.KindUpdate
	if w.Action == "snapshot" {
		kind = venue.KindSnapshot
	}
	return &venue.Message{Kind: kind, Bids: bids, Asks: asks}, nil
}
