package simulation

import "depthsim/internal/orderbook"

// SideName identifies a displayed book side for level selection.
type SideName string

const (
	BidSide SideName = "bid"
	AskSide SideName = "ask"
)

// DisplaySide maps an order to the book side it is correlated with for
// display: Buy orders rest among bids, Sell orders among asks.
func DisplaySide(o orderbook.SimulatedOrder) SideName {
	if o.Side == orderbook.Sell {
		return AskSide
	}
	return BidSide
}

// LevelIndex finds the row a priced order would land on within the given
// side: for bids the first level at or below the order price, for asks
// the first level at or above it. Market orders (price <= 0) and orders
// beyond the displayed range have no row; those return -1. Pure lookup,
// independent of the book-walking estimator.
func LevelIndex(o orderbook.SimulatedOrder, side SideName, levels []orderbook.Level) int {
	if o.IsMarket() {
		return -1
	}
	for i, lvl := range levels {
		price, err := lvl.PriceFloat()
		if err != nil {
			continue
		}
		switch side {
		case BidSide:
			if price <= o.Price {
				return i
			}
		case AskSide:
			if price >= o.Price {
				return i
			}
		}
	}
	return -1
}
