// Package venue defines the boundary contract between venue transports
// and the order book core, plus the shared level codec. Each supported
// venue gets its own adapter implementation in a subpackage.
package venue

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"

	"depthsim/internal/orderbook"
)

type Venue string

const (
	OKX     Venue = "OKX"
	Bybit   Venue = "Bybit"
	Deribit Venue = "Deribit"
)

// ErrUnknownVenue rejects venue names outside the supported set.
var ErrUnknownVenue = errors.New("unknown venue")

// Parse resolves a user-supplied venue name, case-insensitively.
func Parse(s string) (Venue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "okx":
		return OKX, nil
	case "bybit":
		return Bybit, nil
	case "deribit":
		return Deribit, nil
	}
	return "", ErrUnknownVenue
}

type MessageKind string

const (
	KindSnapshot MessageKind = "snapshot"
	KindUpdate   MessageKind = "update"
)

// Message is a normalized book message. Kind reflects the venue's own
// snapshot/delta classification; the core trusts it completely.
type Message struct {
	Kind MessageKind
	Bids []orderbook.Level
	Asks []orderbook.Level
}

// Adapter is one venue's websocket transport. Stream dials, subscribes
// to the given instrument, keeps the connection alive and emits
// normalized messages until ctx is cancelled or the connection drops,
// then closes the channel.
type Adapter interface {
	Name() string
	Stream(ctx context.Context, symbol string) (<-chan Message, error)
}

// FormatSymbol turns free-form user input like "BTC-USD" or "eth/usd"
// into the venue's instrument id. Unparseable input falls back to the
// BTC perpetual in the venue's own spelling.
func FormatSymbol(userInput string, v Venue) string {
	parts := strings.FieldsFunc(strings.ToUpper(userInput), func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		parts = []string{"BTC", "USD"}
	}
	base, quote := parts[0], parts[1]
	switch v {
	case OKX:
		return base + "-" + quote + "-SWAP"
	case Bybit:
		if quote == "USD" {
			quote = "USDT"
		}
		return base + quote
	case Deribit:
		return base + "-PERPETUAL"
	}
	return userInput
}

// ErrDecode signals a raw level whose structural shape is wrong. The
// caller drops the whole message rather than applying a partial one.
var ErrDecode = errors.New("venue: raw level does not decode")

// DecodeLevels normalizes venue tuples of [price, quantity, ...] into
// canonical levels, padding absent trailing fields with "0". Shape is
// the only thing checked here; numeric validation happens in the
// reconciler.
func DecodeLevels(raw [][]string) ([]orderbook.Level, error) {
	if !lo.EveryBy(raw, func(l []string) bool { return len(l) >= 2 }) {
		return nil, ErrDecode
	}
	return lo.Map(raw, func(l []string, _ int) orderbook.Level {
		lvl := orderbook.Level{Price: l[0], Quantity: l[1], Cum: "0", Orders: "0"}
		if len(l) > 2 {
			lvl.Cum = l[2]
		}
		if len(l) > 3 {
			lvl.Orders = l[3]
		}
		return lvl
	}), nil
}
