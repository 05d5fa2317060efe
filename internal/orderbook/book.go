package orderbook

import "sync"

type OrderSide string

const (
	Buy  OrderSide = "Buy"
	Sell OrderSide = "Sell"
)

// MarketPrice is the sentinel limit price for a market order.
const MarketPrice = -1

// SimulatedOrder is a hypothetical order to estimate against the book.
// Price <= 0 means a market order filled at the best available prices;
// a positive price marks a limit order.
type SimulatedOrder struct {
	Side     OrderSide `json:"side"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
}

// IsMarket reports whether the order carries no explicit limit price.
func (o SimulatedOrder) IsMarket() bool { return o.Price <= 0 }

// Book is the state container for one (venue, symbol) order book: both
// reconciled sides, connection state, and the active simulated order.
// There is a single writer path (the feed worker); the RWMutex gives the
// HTTP readers atomic read-then-replace semantics against it.
type Book struct {
	mu        sync.RWMutex
	bids      *Side
	asks      *Side
	connected bool
	venue     string
	symbol    string
	order     *SimulatedOrder
	subs      []func()
}

func NewBook(venue, symbol string) *Book {
	return &Book{
		bids:   NewBidSide(),
		asks:   NewAskSide(),
		venue:  venue,
		symbol: symbol,
	}
}

// Subscribe registers a callback fired after every state mutation.
func (b *Book) Subscribe(fn func()) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// SelectVenue switches the book to a new venue. The switch is a hard
// reset: both sides are cleared, the simulated order is dropped and the
// book is marked disconnected. No state carries over between venues.
func (b *Book) SelectVenue(venue string) {
	b.mu.Lock()
	b.venue = venue
	b.reset()
	b.mu.Unlock()
	b.notify()
}

// SelectSymbol switches the book to a new symbol with the same hard
// reset as SelectVenue.
func (b *Book) SelectSymbol(symbol string) {
	b.mu.Lock()
	b.symbol = symbol
	b.reset()
	b.mu.Unlock()
	b.notify()
}

// reset is called with the lock held.
func (b *Book) reset() {
	b.bids.Clear()
	b.asks.Clear()
	b.order = nil
	b.connected = false
}

// SetConnected records transport state. It never touches book data.
func (b *Book) SetConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
	b.notify()
}

// SubmitOrder replaces the active simulated order in one assignment.
// Passing nil clears it.
func (b *Book) SubmitOrder(o *SimulatedOrder) {
	b.mu.Lock()
	if o != nil {
		cp := *o
		b.order = &cp
	} else {
		b.order = nil
	}
	b.mu.Unlock()
	b.notify()
}

// ProcessSnapshot replaces both sides from an authoritative snapshot.
// It returns the number of malformed levels dropped.
func (b *Book) ProcessSnapshot(bids, asks []Level) (dropped int) {
	b.mu.Lock()
	dropped = b.bids.ApplySnapshot(bids) + b.asks.ApplySnapshot(asks)
	b.mu.Unlock()
	b.notify()
	return dropped
}

// ProcessUpdate merges a delta into both sides independently.
// It returns the number of malformed levels dropped.
func (b *Book) ProcessUpdate(bids, asks []Level) (dropped int) {
	b.mu.Lock()
	dropped = b.bids.ApplyDelta(bids) + b.asks.ApplyDelta(asks)
	b.mu.Unlock()
	b.notify()
	return dropped
}

func (b *Book) notify() {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// Bids returns the bid side best-first.
func (b *Book) Bids() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.Levels()
}

// Asks returns the ask side best-first.
func (b *Book) Asks() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.Levels()
}

func (b *Book) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Book) Venue() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.venue
}

func (b *Book) Symbol() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.symbol
}

// Order returns a copy of the active simulated order, or nil.
func (b *Book) Order() *SimulatedOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.order == nil {
		return nil
	}
	cp := *b.order
	return &cp
}

// Depths returns the resting level counts for both sides.
func (b *Book) Depths() (bids, asks int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.Depth(), b.asks.Depth()
}
