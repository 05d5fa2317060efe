package deribit

import (
	"testing"

	"depthsim/internal/venue"
)

func TestDecodeSnapshotRendersNumbers(t *testing.T) {
	data := []byte(`{"jsonrpc":"2.0","method":"subscription","params":{"channel":"book.BTC-PERPETUAL.100ms","data":{"type":"snapshot","bids":[["new",36500.0,20.0]],"asks":[["new",36510.5,10]]}}}`)
	msg, err := decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Kind != venue.KindSnapshot {
		t.Fatalf("expected snapshot, got %+v", msg)
	}
	if msg.Bids[0].Price != "36500.0" || msg.Bids[0].Quantity != "20.0" {
		t.Fatalf("wire number text must be preserved, got %+v", msg.Bids[0])
	}
	if msg.Asks[0].Price != "36510.5" || msg.Asks[0].Quantity != "10" {
		t.Fatalf("ask level wrong: %+v", msg.Asks[0])
	}
	if msg.Bids[0].Cum != "0" || msg.Bids[0].Orders != "0" {
		t.Fatalf("reserved fields must be zero-padded, got %+v", msg.Bids[0])
	}
}

func TestDecodeChangeIsUpdate(t *testing.T) {
	data := []byte(`{"method":"subscription","params":{"channel":"book.BTC-PERPETUAL.100ms","data":{"type":"change","bids":[["delete",36500.0,0]],"asks":[]}}}`)
	msg, err := decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Kind != venue.KindUpdate {
		t.Fatalf("change frames are updates, got %+v", msg)
	}
	if msg.Bids[0].Quantity != "0" {
		t.Fatalf("delete action must carry zero quantity, got %+v", msg.Bids[0])
	}
}

func TestControlFramesSkipped(t *testing.T) {
	for _, data := range []string{
		`{"jsonrpc":"2.0","id":1,"result":["book.BTC-PERPETUAL.100ms"]}`,
		`{"method":"heartbeat","params":{"type":"test_request"}}`,
	} {
		msg, err := decode([]byte(data))
		if err != nil || msg != nil {
			t.Fatalf("control frame %q should be skipped, got %+v, %v", data, msg, err)
		}
	}
}

func TestShortTripletDropsMessage(t *testing.T) {
	data := []byte(`{"method":"subscription","params":{"channel":"book.BTC-PERPETUAL.100ms","data":{"type":"change","bids":[["new",36500.0]],"asks":[]}}}`)
	if _, err := decode(data); err == nil {
		t.Fatalf("short triplet must fail the whole message")
	}
}
