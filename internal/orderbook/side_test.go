package orderbook

import (
	"reflect"
	"testing"
)

func lvl(price, qty string) Level {
	return Level{Price: price, Quantity: qty, Cum: "0", Orders: "0"}
}

func prices(levels []Level) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, l.Price)
	}
	return out
}

func TestSnapshotReplacesPriorState(t *testing.T) {
	s := NewAskSide()
	s.ApplySnapshot([]Level{lvl("101", "3"), lvl("100", "2")})
	s.ApplySnapshot([]Level{lvl("105", "1")})

	got := prices(s.Levels())
	if !reflect.DeepEqual(got, []string{"105"}) {
		t.Fatalf("snapshot did not replace prior state, got %v", got)
	}
}

func TestBidsSortedDescending(t *testing.T) {
	s := NewBidSide()
	s.ApplySnapshot([]Level{lvl("99", "1"), lvl("101", "1"), lvl("100", "1")})

	got := prices(s.Levels())
	want := []string{"101", "100", "99"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bids not descending: got %v want %v", got, want)
	}
	if best, ok := s.Best(); !ok || best.Price != "101" {
		t.Fatalf("best bid should be 101, got %+v ok=%v", best, ok)
	}
}

func TestAsksSortedAscending(t *testing.T) {
	s := NewAskSide()
	s.ApplySnapshot([]Level{lvl("101", "1"), lvl("99", "1"), lvl("100", "1")})

	got := prices(s.Levels())
	want := []string{"99", "100", "101"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("asks not ascending: got %v want %v", got, want)
	}
	if best, ok := s.Best(); !ok || best.Price != "99" {
		t.Fatalf("best ask should be 99, got %+v ok=%v", best, ok)
	}
}

func TestDeltaUpsertAndZeroDelete(t *testing.T) {
	s := NewBidSide()
	s.ApplySnapshot([]Level{lvl("100", "2"), lvl("99", "5")})

	// overwrite 100, delete 99, insert 101, delete a price never present
	s.ApplyDelta([]Level{lvl("100", "7"), lvl("99", "0"), lvl("101", "1"), lvl("42", "0")})

	levels := s.Levels()
	got := prices(levels)
	want := []string{"101", "100"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("delta merge wrong: got %v want %v", got, want)
	}
	if levels[1].Quantity != "7" {
		t.Fatalf("quantity at 100 should be replaced with 7, got %s", levels[1].Quantity)
	}
}

func TestDeltaIdempotent(t *testing.T) {
	s := NewAskSide()
	s.ApplySnapshot([]Level{lvl("100", "2"), lvl("101", "3")})

	delta := []Level{lvl("100", "9"), lvl("101", "0"), lvl("102", "4")}
	s.ApplyDelta(delta)
	once := s.Levels()
	s.ApplyDelta(delta)
	twice := s.Levels()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("delta not idempotent: once %v twice %v", once, twice)
	}
}

func TestSnapshotAuthority(t *testing.T) {
	s := NewAskSide()
	s.ApplySnapshot([]Level{lvl("100", "2"), lvl("101", "3")})
	s.ApplyDelta([]Level{lvl("105", "1")})
	s.ApplySnapshot([]Level{lvl("200", "1")})
	s.ApplyDelta([]Level{lvl("201", "1")})

	got := prices(s.Levels())
	want := []string{"200", "201"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("prices from before the snapshot leaked through: got %v want %v", got, want)
	}
}

func TestDuplicatePricesCollapse(t *testing.T) {
	s := NewBidSide()
	s.ApplySnapshot([]Level{lvl("100", "1"), lvl("100", "5")})

	levels := s.Levels()
	if len(levels) != 1 {
		t.Fatalf("duplicate prices must collapse to one level, got %d", len(levels))
	}
	if levels[0].Quantity != "5" {
		t.Fatalf("last duplicate should win, got qty %s", levels[0].Quantity)
	}
}

func TestEquivalentPriceSpellingsCollapse(t *testing.T) {
	s := NewBidSide()
	s.ApplySnapshot([]Level{lvl("100.50", "1")})
	s.ApplyDelta([]Level{lvl("100.5", "0")})

	if s.Depth() != 0 {
		t.Fatalf("100.5 and 100.50 are the same price, level should be gone")
	}
}

func TestMalformedLevelsDroppedBatchContinues(t *testing.T) {
	s := NewAskSide()
	dropped := s.ApplySnapshot([]Level{lvl("100", "2")})
	if dropped != 0 {
		t.Fatalf("clean snapshot reported %d dropped", dropped)
	}

	dropped = s.ApplyDelta([]Level{lvl("bogus", "1"), lvl("101", "nope"), lvl("102", "4")})
	if dropped != 2 {
		t.Fatalf("expected 2 dropped levels, got %d", dropped)
	}
	got := prices(s.Levels())
	want := []string{"100", "102"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rest of batch should still apply: got %v want %v", got, want)
	}
}
