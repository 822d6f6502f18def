package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fx-arb-watch/internal/engine"
	"fx-arb-watch/internal/feed"
)

// Replay processes a captured feed file offline: concatenated 32-byte wire
// records, consumed in datagram-sized batches through the real codec and a
// fresh engine. Batch processing time is taken from the newest record in the
// batch so the expiration policy behaves as it did live.
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	if opts.File == "" {
		return errors.New("--file is required")
	}
	if opts.BatchSize <= 0 || opts.BatchSize > feed.MaxQuotesPerDatagram {
		opts.BatchSize = feed.MaxQuotesPerDatagram
	}

	raw, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("read capture file: %w", err)
	}
	if len(raw) < feed.RecordSize {
		return errors.New("capture file contains no complete records")
	}

	observer := &consoleObserver{}
	eng := engine.New(engine.Config{
		QuoteExpiration: a.Config.Engine.QuoteExpiration,
		Anchor:          a.Config.Anchor(),
		Notional:        a.Config.Engine.Notional,
	}, observer, a.Logger)

	chunk := opts.BatchSize * feed.RecordSize
	batches := 0
	for off := 0; off < len(raw); off += chunk {
		end := off + chunk
		if end > len(raw) {
			end = len(raw)
		}

		quotes, err := feed.DecodeBatch(raw[off:end])
		if err != nil {
			return fmt.Errorf("batch at offset %d: %w", off, err)
		}
		if len(quotes) == 0 {
			break
		}

		now := quotes[0].Time
		for _, q := range quotes {
			if q.Time.After(now) {
				now = q.Time
			}
		}

		eng.ProcessBatch(ctx, quotes, now)
		batches++
	}

	a.Logger.Info().
		Int("batches", batches).
		Int("accepted", observer.accepted).
		Int("out_of_sequence", observer.outOfSequence).
		Int("stale_removed", observer.staleRemoved).
		Int("opportunities", observer.opportunities).
		Msg("replay complete")
	return nil
}
