package orderbook

import (
	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/shopspring/decimal"
)

// AskComparator orders prices ascending: the best ask is the lowest.
func AskComparator(a, b interface{}) int {
	aAsserted := a.(decimal.Decimal)
	bAsserted := b.(decimal.Decimal)
	switch {
	case aAsserted.GreaterThan(bAsserted):
		return 1
	case aAsserted.LessThan(bAsserted):
		return -1
	default:
		return 0
	}
}

// BidComparator orders prices descending: the best bid is the highest.
func BidComparator(a, b interface{}) int {
	return -AskComparator(a, b)
}

// Side reconciles one side of an order book. Levels are held in a
// red-black tree keyed by decimal price with the side's comparator, so
// iteration always yields the best price first and uniqueness by price
// holds by construction.
type Side struct {
	tree *rbt.Tree
}

// NewBidSide returns an empty bid side (descending by price).
func NewBidSide() *Side {
	return &Side{tree: rbt.NewWith(BidComparator)}
}

// NewAskSide returns an empty ask side (ascending by price).
func NewAskSide() *Side {
	return &Side{tree: rbt.NewWith(AskComparator)}
}

// ApplySnapshot discards prior state and stores the given levels. A
// snapshot is authoritative; nothing is merged. Levels whose price does
// not parse are dropped and counted.
func (s *Side) ApplySnapshot(levels []Level) (dropped int) {
	fresh := rbt.NewWith(s.tree.Comparator)
	for _, l := range levels {
		price, _, err := parseLevel(l)
		if err != nil {
			dropped++
			continue
		}
		fresh.Put(price, l)
	}
	s.tree = fresh
	return dropped
}

// ApplyDelta merges an incremental update. A level whose quantity parses
// to exactly zero removes that price; anything else inserts or replaces
// the entry at that price outright. Re-applying the same delta yields the
// same state. Unparseable levels are dropped and counted, the rest of the
// batch still applies.
func (s *Side) ApplyDelta(levels []Level) (dropped int) {
	for _, l := range levels {
		price, qty, err := parseLevel(l)
		if err != nil {
			dropped++
			continue
		}
		if qty.IsZero() {
			s.tree.Remove(price)
			continue
		}
		s.tree.Put(price, l)
	}
	return dropped
}

// Levels returns the side in price-priority order, best first.
func (s *Side) Levels() []Level {
	out := make([]Level, 0, s.tree.Size())
	it := s.tree.Iterator()
	for it.Next() {
		out = append(out, it.Value().(Level))
	}
	return out
}

// Best returns the top-of-book level, if any.
func (s *Side) Best() (Level, bool) {
	n := s.tree.Left()
	if n == nil {
		return Level{}, false
	}
	return n.Value.(Level), true
}

// Depth returns the number of price levels resting on this side.
func (s *Side) Depth() int { return s.tree.Size() }

// Clear empties the side.
func (s *Side) Clear() {
	s.tree = rbt.NewWith(s.tree.Comparator)
}
