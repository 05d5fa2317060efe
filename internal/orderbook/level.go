package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Level is one resting liquidity entry in canonical feed form:
// price, quantity, cumulative quantity, order count. All four fields keep
// the wire strings; venues that only send price/quantity pad the rest
// with "0". Price is the unique key within one book side.
type Level struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Cum      string `json:"cum"`
	Orders   string `json:"orders"`
}

// MalformedLevelError reports a level whose price or quantity does not
// parse as a number. The reconciler drops the level and keeps going.
type MalformedLevelError struct {
	Field string
	Value string
}

func (e *MalformedLevelError) Error() string {
	return fmt.Sprintf("malformed level: %s %q not numeric", e.Field, e.Value)
}

func parseLevel(l Level) (price, qty decimal.Decimal, err error) {
	price, err = decimal.NewFromString(l.Price)
	if err != nil {
		return price, qty, &MalformedLevelError{Field: "price", Value: l.Price}
	}
	qty, err = decimal.NewFromString(l.Quantity)
	if err != nil {
		return price, qty, &MalformedLevelError{Field: "quantity", Value: l.Quantity}
	}
	return price, qty, nil
}

// PriceFloat parses the level price for display/simulation arithmetic.
func (l Level) PriceFloat() (float64, error) {
	d, err := decimal.NewFromString(l.Price)
	if err != nil {
		return 0, &MalformedLevelError{Field: "price", Value: l.Price}
	}
	return d.InexactFloat64(), nil
}

// QuantityFloat parses the level quantity for simulation arithmetic.
func (l Level) QuantityFloat() (float64, error) {
	d, err := decimal.NewFromString(l.Quantity)
	if err != nil {
		return 0, &MalformedLevelError{Field: "quantity", Value: l.Quantity}
	}
	return d.InexactFloat64(), nil
}
