package simulation

import (
	"errors"
	"math"

	"depthsim/internal/orderbook"
)

// Metrics is the estimated execution cost of a simulated order.
// Recomputed on demand, never stored.
type Metrics struct {
	EstimatedFillPrice float64 `json:"estimated_fill_price"`
	SlippagePercent    float64 `json:"slippage_percent"`
	FillPercentage     float64 `json:"fill_percentage"`
	MarketImpact       float64 `json:"market_impact"`
}

// ErrInvalidOrder rejects structurally invalid input at the boundary;
// the simulator itself assumes a valid order.
var ErrInvalidOrder = errors.New("simulated order: quantity must be positive and side Buy or Sell")

// Validate checks a simulated order before it reaches the estimator.
func Validate(o orderbook.SimulatedOrder) error {
	if o.Side != orderbook.Buy && o.Side != orderbook.Sell {
		return ErrInvalidOrder
	}
	if o.Quantity <= 0 || math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
		return ErrInvalidOrder
	}
	return nil
}

// Estimate computes impact metrics for the order against the current
// book. A limit order (positive price) bypasses the walk entirely: it is
// assumed to fill completely at its stated price with zero slippage.
// A market order walks the side it consumes: Buy walks asks, Sell bids.
func Estimate(o orderbook.SimulatedOrder, book *orderbook.Book) Metrics {
	if !o.IsMarket() {
		return Metrics{
			EstimatedFillPrice: o.Price,
			SlippagePercent:    0,
			FillPercentage:     100,
			MarketImpact:       o.Price * o.Quantity,
		}
	}
	if o.Side == orderbook.Buy {
		return WalkBook(o, book.Asks())
	}
	return WalkBook(o, book.Bids())
}

// WalkBook consumes levels greedily in price-priority order, best first,
// and derives fill price, slippage and impact. An empty book or
// non-positive quantity yields the defined zeroed result with a 100%
// fill, not an error. Levels beyond the fill point are untouched; a book
// too shallow for the order shows up only as FillPercentage < 100.
func WalkBook(o orderbook.SimulatedOrder, levels []orderbook.Level) Metrics {
	if o.Quantity <= 0 || len(levels) == 0 {
		return Metrics{FillPercentage: 100}
	}

	idealPrice, err := levels[0].PriceFloat()
	if err != nil {
		return Metrics{FillPercentage: 100}
	}

	remaining := o.Quantity
	var cost, filled float64
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		price, perr := lvl.PriceFloat()
		qty, qerr := lvl.QuantityFloat()
		if perr != nil || qerr != nil {
			continue
		}
		use := math.Min(remaining, qty)
		cost += use * price
		filled += use
		remaining -= use
	}

	if filled == 0 {
		return Metrics{FillPercentage: 100}
	}

	fill := cost / filled
	return Metrics{
		EstimatedFillPrice: fill,
		SlippagePercent:    math.Abs(fill-idealPrice) / idealPrice * 100,
		FillPercentage:     filled / o.Quantity * 100,
		MarketImpact:       cost,
	}
}
