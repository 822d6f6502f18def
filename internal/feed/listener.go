package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"fx-arb-watch/internal/market"
)

// BatchHandler consumes one decoded batch. The listener invokes it
// synchronously from a single goroutine, so batches arrive strictly in
// reception order and all downstream mutation is serialized by construction.
type BatchHandler func(ctx context.Context, quotes []market.Quote, received time.Time)

// Options configure the feed subscription.
type Options struct {
	ListenHost string
	ListenPort int
	// AdvertiseHost is the address placed in the subscription request; when
	// empty the listen host is used.
	AdvertiseHost   string
	ProviderHost    string
	ProviderPort    int
	IdleTimeout     time.Duration
	ReadBufferBytes int
}

// Listener binds a UDP socket, sends one subscription request to the
// provider, and hands each received datagram to the batch handler.
type Listener struct {
	opts   Options
	logger zerolog.Logger
}

// NewListener constructs a feed listener.
func NewListener(opts Options, logger zerolog.Logger) *Listener {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Second
	}
	if opts.ReadBufferBytes < MaxDatagramSize {
		opts.ReadBufferBytes = MaxDatagramSize
	}
	return &Listener{opts: opts, logger: logger.With().Str("component", "feed").Logger()}
}

// Run blocks until the subscription goes idle or ctx is cancelled. An idle
// timeout is the feed's normal termination path and returns nil; transport
// errors and cancellation propagate.
func (l *Listener) Run(ctx context.Context, handle BatchHandler) error {
	listenAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", l.opts.ListenHost, l.opts.ListenPort))
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}
	providerAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", l.opts.ProviderHost, l.opts.ProviderPort))
	if err != nil {
		return fmt.Errorf("resolve provider address: %w", err)
	}

	conn, err := net.ListenUDP("udp4", listenAddr)
	if err != nil {
		return fmt.Errorf("bind subscriber socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := l.subscribe(conn, providerAddr); err != nil {
		return err
	}

	buf := make([]byte, l.opts.ReadBufferBytes)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(l.opts.IdleTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				l.logger.Info().
					Dur("idle_timeout", l.opts.IdleTimeout).
					Msg("no messages within idle timeout; subscription cancelled")
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		quotes, err := DecodeBatch(buf[:n])
		if err != nil {
			l.logger.Warn().Err(err).Int("bytes", n).Msg("dropping undecodable datagram")
			continue
		}

		handle(ctx, quotes, time.Now().UTC())
	}
}

func (l *Listener) subscribe(conn *net.UDPConn, providerAddr *net.UDPAddr) error {
	host := l.opts.AdvertiseHost
	if host == "" {
		host = l.opts.ListenHost
	}

	ip, err := resolveIPv4(host)
	if err != nil {
		return fmt.Errorf("resolve advertise host: %w", err)
	}

	payload, err := EncodeSubscription(ip, l.opts.ListenPort)
	if err != nil {
		return err
	}

	if _, err := conn.WriteToUDP(payload, providerAddr); err != nil {
		return fmt.Errorf("send subscription request: %w", err)
	}

	l.logger.Info().
		Str("subscriber", fmt.Sprintf("%s:%d", ip, l.opts.ListenPort)).
		Stringer("provider", providerAddr).
		Msg("subscription request sent")
	return nil
}

func resolveIPv4(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if ip4 := addr.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address for %q", host)
}
