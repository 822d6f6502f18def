package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"fx-arb-watch/internal/engine"
	"fx-arb-watch/internal/market"
	"fx-arb-watch/internal/report"
)

// consoleObserver prints engine events to stdout. Used by the offline
// commands (replay, simulate) where no service pipeline is wired.
type consoleObserver struct {
	accepted      int
	outOfSequence int
	staleRemoved  int
	opportunities int
}

func (c *consoleObserver) QuoteAccepted(ctx context.Context, q market.Quote) {
	c.accepted++
}

func (c *consoleObserver) QuoteOutOfSequence(ctx context.Context, q market.Quote, lastSeen time.Time) {
	c.outOfSequence++
}

func (c *consoleObserver) StalePairRemoved(ctx context.Context, cross market.Cross, lastSeen time.Time) {
	c.staleRemoved++
}

func (c *consoleObserver) CycleDiscarded(ctx context.Context, err error) {}

func (c *consoleObserver) OpportunityFound(ctx context.Context, opp report.Opportunity) {
	c.opportunities++
	fmt.Fprintln(os.Stdout, opp.FormatText())
}

var _ engine.Observer = (*consoleObserver)(nil)
