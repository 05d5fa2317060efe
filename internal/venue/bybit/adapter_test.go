package bybit

import (
	"testing"

	"depthsim/internal/venue"
)

func TestDecodeDeltaPadsLevels(t *testing.T) {
	data := []byte(`{"topic":"orderbook.50.BTCUSDT","type":"delta","data":{"b":[["41000.5","2"]],"a":[["41001","0"]]}}`)
	msg, err := decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Kind != venue.KindUpdate {
		t.Fatalf("expected update, got %+v", msg)
	}
	b := msg.Bids[0]
	if b.Price != "41000.5" || b.Quantity != "2" || b.Cum != "0" || b.Orders != "0" {
		t.Fatalf("bybit pair must be padded to 4 fields, got %+v", b)
	}
	if msg.Asks[0].Quantity != "0" {
		t.Fatalf("zero-quantity delete level must pass through, got %+v", msg.Asks[0])
	}
}

func TestDecodeSnapshot(t *testing.T) {
	data := []byte(`{"topic":"orderbook.50.BTCUSDT","type":"snapshot","data":{"b":[["100","1"]],"a":[["101","2"]]}}`)
	msg, err := decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg == nil || msg.Kind != venue.KindSnapshot {
		t.Fatalf("expected snapshot, got %+v", msg)
	}
}

func TestAcksAndPongsSkipped(t *testing.T) {
	for _, data := range []string{
		`{"success":true,"ret_msg":"","op":"subscribe"}`,
		`{"success":true,"ret_msg":"pong","op":"ping"}`,
	} {
		msg, err := decode([]byte(data))
		if err != nil || msg != nil {
			t.Fatalf("control frame %q should be skipped, got %+v, %v", data, msg, err)
		}
	}
}

func TestFailedAckSurfaces(t *testing.T) {
	if _, err := decode([]byte(`{"success":false,"ret_msg":"unknown topic"}`)); err == nil {
		t.Fatalf("failed ack must surface as error")
	}
}

func TestTopic(t *testing.T) {
	if got := topic("BTCUSDT"); got != "orderbook.50.BTCUSDT" {
		t.Fatalf("topic = %q", got)
	}
}
