package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"fx-arb-watch/internal/graph"
	"fx-arb-watch/internal/market"
	"fx-arb-watch/internal/report"
)

// Observer receives the engine's observability events. All methods are
// invoked synchronously on the batch-processing path.
type Observer interface {
	QuoteAccepted(ctx context.Context, q market.Quote)
	QuoteOutOfSequence(ctx context.Context, q market.Quote, lastSeen time.Time)
	StalePairRemoved(ctx context.Context, cross market.Cross, lastSeen time.Time)
	CycleDiscarded(ctx context.Context, err error)
	OpportunityFound(ctx context.Context, opp report.Opportunity)
}

// Config holds the engine's policy knobs.
type Config struct {
	// QuoteExpiration is the maximum age of a pair's last accepted quote
	// before its edges are evicted.
	QuoteExpiration time.Duration
	// Anchor is the currency every reported cycle must start and end at.
	Anchor market.Currency
	// Notional is the starting amount for yield evaluation.
	Notional float64
}

// Engine owns the rate graph and the quote admission state. It is the sole
// mutator of both; ProcessBatch must not be called concurrently.
type Engine struct {
	cfg      Config
	graph    *graph.Graph
	lastSeen map[market.Cross]time.Time
	observer Observer
	logger   zerolog.Logger
}

// Stats is a point-in-time snapshot of engine state for status reporting.
type Stats struct {
	Vertices     int
	Edges        int
	TrackedPairs int
}

// New constructs an engine with empty state.
func New(cfg Config, observer Observer, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		graph:    graph.New(),
		lastSeen: make(map[market.Cross]time.Time),
		observer: observer,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// ProcessBatch runs one full pass for a received batch: expire stale pairs,
// admit quotes in batch order, then detect and report. Expiry runs first so
// a batch that both expires and refreshes a pair behaves deterministically.
func (e *Engine) ProcessBatch(ctx context.Context, quotes []market.Quote, now time.Time) {
	e.removeExpired(ctx, now)

	for _, q := range quotes {
		e.admit(ctx, q)
	}

	e.detect(ctx, now)
}

// Stats snapshots graph and admission-state sizes.
func (e *Engine) Stats() Stats {
	return Stats{
		Vertices:     e.graph.VertexCount(),
		Edges:        e.graph.EdgeCount(),
		TrackedPairs: len(e.lastSeen),
	}
}

// Graph exposes read access for offline evaluation (simulate/replay).
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

func (e *Engine) removeExpired(ctx context.Context, now time.Time) {
	for cross, ts := range e.lastSeen {
		if now.Sub(ts) <= e.cfg.QuoteExpiration {
			continue
		}

		// Partial absence is expected; the pair may never have produced
		// edges (non-positive price) or was already half-removed.
		if err := e.graph.RemoveEdge(cross.Base, cross.Term); err != nil && !errors.Is(err, graph.ErrEdgeNotFound) {
			e.logger.Warn().Err(err).Stringer("cross", cross).Msg("unexpected error removing edge")
		}
		if err := e.graph.RemoveEdge(cross.Term, cross.Base); err != nil && !errors.Is(err, graph.ErrEdgeNotFound) {
			e.logger.Warn().Err(err).Stringer("cross", cross).Msg("unexpected error removing edge")
		}
		delete(e.lastSeen, cross)

		e.logger.Info().Stringer("cross", cross).Time("last_seen", ts).Msg("removing stale quote")
		e.observer.StalePairRemoved(ctx, cross, ts)
	}
}

func (e *Engine) admit(ctx context.Context, q market.Quote) {
	if last, ok := e.lastSeen[q.Cross]; ok && !q.Time.After(last) {
		e.logger.Info().
			Stringer("cross", q.Cross).
			Float64("price", q.Price).
			Time("quote_time", q.Time).
			Time("last_seen", last).
			Msg("ignoring out-of-sequence message")
		e.observer.QuoteOutOfSequence(ctx, q, last)
		return
	}

	e.lastSeen[q.Cross] = q.Time

	// Non-positive prices are admitted for sequencing only; they never
	// contribute an edge.
	if q.Price > 0 {
		w := math.Log10(q.Price)
		e.graph.AddEdge(q.Cross.Base, q.Cross.Term, -w)

		// The derived reverse edge must not clobber a direction that is
		// independently quoted: when both orientations of a pair are live,
		// each keeps the rate of its own latest quote. That disagreement is
		// exactly what the detector is looking for.
		reverse := market.Cross{Base: q.Cross.Term, Term: q.Cross.Base}
		if _, owned := e.lastSeen[reverse]; !owned {
			e.graph.AddEdge(q.Cross.Term, q.Cross.Base, w)
		}
	}

	e.logger.Debug().
		Stringer("cross", q.Cross).
		Float64("price", q.Price).
		Time("quote_time", q.Time).
		Msg("quote accepted")
	e.observer.QuoteAccepted(ctx, q)
}

func (e *Engine) detect(ctx context.Context, now time.Time) {
	if !e.graph.HasVertex(e.cfg.Anchor) {
		return
	}

	_, prev, witness := e.graph.ShortestPaths(e.cfg.Anchor)
	if witness == nil {
		return
	}

	opp, err := report.Build(e.graph, prev, *witness, e.cfg.Anchor, e.cfg.Notional, now)
	if err != nil {
		if errors.Is(err, report.ErrNotAnchored) {
			e.logger.Debug().Err(err).Msg("negative cycle discarded")
		} else {
			e.logger.Error().Err(err).Msg("cycle reconstruction failed")
		}
		e.observer.CycleDiscarded(ctx, err)
		return
	}

	e.logger.Info().
		Strs("cycle", opp.CycleStrings()).
		Str("profit_pct", opp.ProfitPct.StringFixed(4)).
		Str("final_amount", opp.FinalAmount.StringFixed(6)).
		Msg("arbitrage opportunity detected")
	e.observer.OpportunityFound(ctx, opp)
}
