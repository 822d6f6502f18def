package feed

import (
	"math"
	"net"
	"testing"
	"time"

	"fx-arb-watch/internal/market"
)

func TestRecordRoundTrip(t *testing.T) {
	at := time.UnixMicro(1700000000123456).UTC()
	in := []market.Quote{
		{Cross: market.Cross{Base: "USD", Term: "EUR"}, Price: float64(float32(0.9)), Time: at},
		{Cross: market.Cross{Base: "GBP", Term: "JPY"}, Price: float64(float32(185.25)), Time: at.Add(time.Millisecond)},
	}

	var buf []byte
	for _, q := range in {
		buf = append(buf, EncodeRecord(q)...)
	}

	out, err := DecodeBatch(buf)
	if err != nil {
		t.Fatalf("decode should succeed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d quotes, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].Cross != in[i].Cross {
			t.Fatalf("quote %d: expected cross %s, got %s", i, in[i].Cross, out[i].Cross)
		}
		if out[i].Price != in[i].Price {
			t.Fatalf("quote %d: expected price %v, got %v", i, in[i].Price, out[i].Price)
		}
		if !out[i].Time.Equal(in[i].Time) {
			t.Fatalf("quote %d: expected time %s, got %s", i, in[i].Time, out[i].Time)
		}
	}
}

func TestDecodeIgnoresTrailingPartialRecord(t *testing.T) {
	q := market.Quote{Cross: market.Cross{Base: "USD", Term: "EUR"}, Price: 0.9, Time: time.Now()}
	buf := append(EncodeRecord(q), 0xDE, 0xAD, 0xBE, 0xEF)

	out, err := DecodeBatch(buf)
	if err != nil {
		t.Fatalf("decode should succeed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(out))
	}
}

func TestDecodeRejectsBadCurrency(t *testing.T) {
	q := market.Quote{Cross: market.Cross{Base: "USD", Term: "EUR"}, Price: 0.9, Time: time.Now()}
	buf := EncodeRecord(q)
	buf[0] = '1' // corrupt the base code

	if _, err := DecodeBatch(buf); err == nil {
		t.Fatal("corrupted currency code should fail decoding")
	}
}

func TestDecodeEmptyDatagram(t *testing.T) {
	out, err := DecodeBatch(nil)
	if err != nil {
		t.Fatalf("empty datagram should decode to nothing: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no quotes, got %d", len(out))
	}
}

func TestEncodeSubscription(t *testing.T) {
	payload, err := EncodeSubscription(net.ParseIP("192.0.2.1"), 0x1234)
	if err != nil {
		t.Fatalf("encode should succeed: %v", err)
	}

	want := []byte{192, 0, 2, 1, 0x12, 0x34}
	if len(payload) != len(want) {
		t.Fatalf("expected %d bytes, got %d", len(want), len(payload))
	}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("byte %d: expected %#x, got %#x", i, want[i], payload[i])
		}
	}
}

func TestEncodeSubscriptionRejectsBadInput(t *testing.T) {
	if _, err := EncodeSubscription(net.ParseIP("2001:db8::1"), 1234); err == nil {
		t.Fatal("IPv6-only address should be rejected")
	}
	if _, err := EncodeSubscription(net.ParseIP("192.0.2.1"), 0); err == nil {
		t.Fatal("port 0 should be rejected")
	}
	if _, err := EncodeSubscription(net.ParseIP("192.0.2.1"), math.MaxUint16+1); err == nil {
		t.Fatal("out-of-range port should be rejected")
	}
}
