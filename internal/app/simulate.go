package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"fx-arb-watch/internal/engine"
	"fx-arb-watch/internal/market"
)

// Simulate feeds an inconsistent pair of quotes through a fresh engine and
// prints whatever the detector reports. Useful for verifying wiring without
// a live provider.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.Price <= 0 || opts.ReversePrice <= 0 {
		return errors.New("--price and --reverse-price must be greater than zero")
	}

	cross, err := market.ParseCross(opts.Cross)
	if err != nil {
		return err
	}

	observer := &consoleObserver{}
	eng := engine.New(engine.Config{
		QuoteExpiration: a.Config.Engine.QuoteExpiration,
		Anchor:          a.Config.Anchor(),
		Notional:        a.Config.Engine.Notional,
	}, observer, a.Logger)

	now := time.Now().UTC()
	quotes := []market.Quote{
		{Cross: cross, Price: opts.Price, Time: now},
		{Cross: market.Cross{Base: cross.Term, Term: cross.Base}, Price: opts.ReversePrice, Time: now.Add(time.Millisecond)},
	}

	eng.ProcessBatch(ctx, quotes, now)

	if observer.opportunities == 0 {
		fmt.Fprintln(os.Stdout, "no arbitrage detected for the given prices")
	}
	return nil
}
