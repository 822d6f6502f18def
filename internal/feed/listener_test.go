package feed

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fx-arb-watch/internal/market"
)

// freeUDPPort grabs an ephemeral port and releases it so the listener can
// bind it itself. The subscription payload needs a concrete port up front.
func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("probe ephemeral port: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func startProvider(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("start provider socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSubscription(t *testing.T, provider *net.UDPConn) *net.UDPAddr {
	t.Helper()
	buf := make([]byte, 64)
	provider.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := provider.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read subscription request: %v", err)
	}
	if n != 6 {
		t.Fatalf("subscription should be 6 bytes, got %d", n)
	}
	return &net.UDPAddr{
		IP:   net.IPv4(buf[0], buf[1], buf[2], buf[3]),
		Port: int(binary.BigEndian.Uint16(buf[4:6])),
	}
}

func TestListenerDeliversBatchesAndStopsOnIdle(t *testing.T) {
	provider := startProvider(t)
	listenPort := freeUDPPort(t)

	l := NewListener(Options{
		ListenHost:   "127.0.0.1",
		ListenPort:   listenPort,
		ProviderHost: "127.0.0.1",
		ProviderPort: provider.LocalAddr().(*net.UDPAddr).Port,
		IdleTimeout:  300 * time.Millisecond,
	}, zerolog.Nop())

	batches := make(chan []market.Quote, 4)
	done := make(chan error, 1)
	go func() {
		done <- l.Run(context.Background(), func(_ context.Context, quotes []market.Quote, _ time.Time) {
			batches <- quotes
		})
	}()

	subscriber := readSubscription(t, provider)
	if subscriber.Port != listenPort {
		t.Fatalf("subscription should advertise port %d, got %d", listenPort, subscriber.Port)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	datagram := append(
		EncodeRecord(market.Quote{Cross: market.Cross{Base: "USD", Term: "EUR"}, Price: 0.9, Time: now}),
		EncodeRecord(market.Quote{Cross: market.Cross{Base: "EUR", Term: "GBP"}, Price: 0.85, Time: now})...,
	)
	if _, err := provider.WriteToUDP(datagram, subscriber); err != nil {
		t.Fatalf("send datagram: %v", err)
	}

	select {
	case quotes := <-batches:
		if len(quotes) != 2 {
			t.Fatalf("expected 2 quotes, got %d", len(quotes))
		}
		if quotes[0].Cross.String() != "USD/EUR" || quotes[1].Cross.String() != "EUR/GBP" {
			t.Fatalf("unexpected batch contents: %v", quotes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch never reached the handler")
	}

	// Idle timeout is the normal end of the subscription.
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("idle shutdown should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after going idle")
	}
}

func TestListenerSkipsUndecodableDatagram(t *testing.T) {
	provider := startProvider(t)
	listenPort := freeUDPPort(t)

	l := NewListener(Options{
		ListenHost:   "127.0.0.1",
		ListenPort:   listenPort,
		ProviderHost: "127.0.0.1",
		ProviderPort: provider.LocalAddr().(*net.UDPAddr).Port,
		IdleTimeout:  300 * time.Millisecond,
	}, zerolog.Nop())

	batches := make(chan []market.Quote, 4)
	done := make(chan error, 1)
	go func() {
		done <- l.Run(context.Background(), func(_ context.Context, quotes []market.Quote, _ time.Time) {
			batches <- quotes
		})
	}()

	subscriber := readSubscription(t, provider)

	garbage := make([]byte, RecordSize) // zero bytes are not valid currency codes
	if _, err := provider.WriteToUDP(garbage, subscriber); err != nil {
		t.Fatalf("send garbage: %v", err)
	}
	valid := EncodeRecord(market.Quote{Cross: market.Cross{Base: "USD", Term: "JPY"}, Price: 147.5, Time: time.Now()})
	if _, err := provider.WriteToUDP(valid, subscriber); err != nil {
		t.Fatalf("send valid record: %v", err)
	}

	select {
	case quotes := <-batches:
		if len(quotes) != 1 || quotes[0].Cross.String() != "USD/JPY" {
			t.Fatalf("expected only the valid quote, got %v", quotes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid datagram never reached the handler")
	}

	if err := <-done; err != nil {
		t.Fatalf("idle shutdown should return nil, got %v", err)
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	provider := startProvider(t)
	listenPort := freeUDPPort(t)

	l := NewListener(Options{
		ListenHost:   "127.0.0.1",
		ListenPort:   listenPort,
		ProviderHost: "127.0.0.1",
		ProviderPort: provider.LocalAddr().(*net.UDPAddr).Port,
		IdleTimeout:  10 * time.Second,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func(context.Context, []market.Quote, time.Time) {})
	}()

	readSubscription(t, provider)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancellation should propagate, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancellation")
	}
}
