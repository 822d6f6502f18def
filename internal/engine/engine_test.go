package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fx-arb-watch/internal/market"
	"fx-arb-watch/internal/report"
)

type recordingObserver struct {
	accepted      []market.Quote
	outOfSequence []market.Quote
	removed       []market.Cross
	discarded     []error
	opportunities []report.Opportunity
}

func (o *recordingObserver) QuoteAccepted(_ context.Context, q market.Quote) {
	o.accepted = append(o.accepted, q)
}

func (o *recordingObserver) QuoteOutOfSequence(_ context.Context, q market.Quote, _ time.Time) {
	o.outOfSequence = append(o.outOfSequence, q)
}

func (o *recordingObserver) StalePairRemoved(_ context.Context, cross market.Cross, _ time.Time) {
	o.removed = append(o.removed, cross)
}

func (o *recordingObserver) CycleDiscarded(_ context.Context, err error) {
	o.discarded = append(o.discarded, err)
}

func (o *recordingObserver) OpportunityFound(_ context.Context, opp report.Opportunity) {
	o.opportunities = append(o.opportunities, opp)
}

func newTestEngine(obs Observer) *Engine {
	return New(Config{
		QuoteExpiration: 1500 * time.Millisecond,
		Anchor:          "USD",
		Notional:        100,
	}, obs, zerolog.Nop())
}

func quote(cross string, price float64, at time.Time) market.Quote {
	c, err := market.ParseCross(cross)
	if err != nil {
		panic(err)
	}
	return market.Quote{Cross: c, Price: price, Time: at}
}

func TestArbitrageAcrossOrientations(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	now := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{
		quote("USD/EUR", 0.9, now),
		quote("EUR/USD", 1.2, now.Add(time.Millisecond)),
	}, now.Add(time.Millisecond))

	if len(obs.opportunities) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(obs.opportunities))
	}
	opp := obs.opportunities[0]

	want := []market.Currency{"USD", "EUR", "USD"}
	if len(opp.Cycle) != len(want) {
		t.Fatalf("expected cycle %v, got %v", want, opp.Cycle)
	}
	for i := range want {
		if opp.Cycle[i] != want[i] {
			t.Fatalf("expected cycle %v, got %v", want, opp.Cycle)
		}
	}

	final := opp.FinalAmount.InexactFloat64()
	if final <= 100 {
		t.Fatalf("round trip should end above the notional, got %v", final)
	}
	if math.Abs(final-108.0) > 1e-6 {
		t.Fatalf("100 through 0.9 then 1.2 should end at 108, got %v", final)
	}
}

func TestConsistentQuotesReportNothing(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	now := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{
		quote("USD/EUR", 0.9, now),
		quote("EUR/GBP", 0.85, now),
		quote("USD/GBP", 0.9*0.85, now),
	}, now)

	if len(obs.opportunities) != 0 {
		t.Fatalf("consistent rates should not report, got %d opportunities", len(obs.opportunities))
	}
	if len(obs.discarded) != 0 {
		t.Fatalf("nothing should be discarded, got %v", obs.discarded)
	}
}

func TestOutOfSequenceQuoteRejected(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	t1 := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{quote("USD/EUR", 0.9, t1)}, t1)
	// A later datagram carrying an older timestamp must not disturb state.
	e.ProcessBatch(context.Background(), []market.Quote{quote("USD/EUR", 0.95, t1.Add(-time.Second))}, t1.Add(time.Millisecond))

	if len(obs.outOfSequence) != 1 {
		t.Fatalf("expected 1 out-of-sequence rejection, got %d", len(obs.outOfSequence))
	}

	w, ok := e.Graph().Weight("USD", "EUR")
	if !ok {
		t.Fatal("edge should survive the rejected quote")
	}
	if math.Abs(w-(-math.Log10(0.9))) > 1e-12 {
		t.Fatalf("edge should keep the first quote's rate, got weight %v", w)
	}
}

func TestEqualTimestampRejected(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	t1 := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{
		quote("USD/EUR", 0.9, t1),
		quote("USD/EUR", 0.95, t1),
	}, t1)

	if len(obs.accepted) != 1 || len(obs.outOfSequence) != 1 {
		t.Fatalf("expected 1 accepted and 1 rejected, got %d/%d", len(obs.accepted), len(obs.outOfSequence))
	}
}

func TestStalePairEvictedBeforeAdmission(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	t0 := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{quote("USD/EUR", 0.9, t0)}, t0)

	// The next batch arrives after the expiration window; the unrelated
	// pair is admitted only after the stale one is gone.
	t1 := t0.Add(2 * time.Second)
	e.ProcessBatch(context.Background(), []market.Quote{quote("GBP/JPY", 185.0, t1)}, t1)

	if len(obs.removed) != 1 {
		t.Fatalf("expected 1 stale removal, got %d", len(obs.removed))
	}
	if got := obs.removed[0].String(); got != "USD/EUR" {
		t.Fatalf("expected USD/EUR removed, got %s", got)
	}
	if e.Graph().HasVertex("USD") || e.Graph().HasVertex("EUR") {
		t.Fatal("stale pair's vertices should be gone")
	}

	stats := e.Stats()
	if stats.TrackedPairs != 1 {
		t.Fatalf("expected 1 tracked pair, got %d", stats.TrackedPairs)
	}
	if stats.Edges != 2 {
		t.Fatalf("expected 2 edges from the fresh pair, got %d", stats.Edges)
	}
}

func TestEdgeSymmetryOnAdmission(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	now := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{quote("GBP/JPY", 185.0, now)}, now)

	forward, ok := e.Graph().Weight("GBP", "JPY")
	if !ok {
		t.Fatal("forward edge missing")
	}
	backward, ok := e.Graph().Weight("JPY", "GBP")
	if !ok {
		t.Fatal("derived reverse edge missing")
	}
	if forward != -backward {
		t.Fatalf("directional weights should be negated duplicates: %v vs %v", forward, backward)
	}
}

func TestNonPositivePriceIsSequencingOnly(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	t0 := time.Now()

	e.ProcessBatch(context.Background(), []market.Quote{quote("USD/EUR", 0, t0)}, t0)

	if len(obs.accepted) != 1 {
		t.Fatalf("zero-price quote should still be admitted, got %d accepted", len(obs.accepted))
	}
	if e.Graph().VertexCount() != 0 {
		t.Fatal("zero-price quote must not create edges")
	}

	// The admitted timestamp still guards ordering.
	e.ProcessBatch(context.Background(), []market.Quote{quote("USD/EUR", 0.9, t0)}, t0)
	if len(obs.outOfSequence) != 1 {
		t.Fatal("equal timestamp after a sequencing-only quote should be rejected")
	}
}

func TestMissingAnchorSkipsDetection(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(obs)
	now := time.Now()

	// Profitable two-currency loop, but the anchor never appears.
	e.ProcessBatch(context.Background(), []market.Quote{
		quote("EUR/GBP", 0.9, now),
		quote("GBP/EUR", 1.2, now.Add(time.Millisecond)),
	}, now.Add(time.Millisecond))

	if len(obs.opportunities) != 0 {
		t.Fatalf("detection requires the anchor vertex, got %d opportunities", len(obs.opportunities))
	}
}
