package report

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fx-arb-watch/internal/graph"
	"fx-arb-watch/internal/market"
)

var (
	// ErrNotAnchored indicates the reconstructed cycle does not start and end
	// at the anchor currency. The pass is discarded; the next batch will
	// re-detect anything still present.
	ErrNotAnchored = errors.New("report: cycle does not close at anchor")
	// ErrCycleBroken indicates the predecessor chain is inconsistent (missing
	// link, vanished edge, or walk exceeding the vertex bound). This is an
	// internal consistency failure, never a reason to hang.
	ErrCycleBroken = errors.New("report: predecessor chain broken")
)

// Leg is one executed exchange in the trade sequence.
type Leg struct {
	From   market.Currency
	To     market.Currency
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Opportunity is a fully reconstructed arbitrage loop: the cycle, the trade
// legs from a fixed notional, and the realized yield.
type Opportunity struct {
	DetectedAt  time.Time
	Anchor      market.Currency
	Cycle       []market.Currency
	Notional    decimal.Decimal
	FinalAmount decimal.Decimal
	ProfitPct   decimal.Decimal
	Legs        []Leg
}

// ReconstructCycle walks predecessors backward from the witness edge until a
// vertex repeats, then returns the cycle in forward order. The walk is
// bounded by the size of the predecessor map so a malformed chain fails with
// ErrCycleBroken instead of looping.
func ReconstructCycle(prev map[market.Currency]market.Currency, witness graph.Edge) ([]market.Currency, error) {
	u := witness.From
	cycle := []market.Currency{witness.To, u}
	seen := map[market.Currency]bool{witness.To: true, u: true}

	limit := len(prev) + 2
	for i := 0; ; i++ {
		if i > limit {
			return nil, fmt.Errorf("%w: walk exceeded %d vertices", ErrCycleBroken, limit)
		}
		p, ok := prev[u]
		if !ok {
			return nil, fmt.Errorf("%w: no predecessor for %s", ErrCycleBroken, u)
		}
		if seen[p] {
			cycle = append(cycle, p)
			break
		}
		u = p
		cycle = append(cycle, u)
		seen[u] = true
	}

	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle, nil
}

// Build reconstructs and evaluates the cycle behind a negative-cycle witness.
// The reconstructed loop closes at an arbitrary vertex (predecessor maps have
// no canonical root), so a closed cycle that merely passes through the anchor
// is rotated to start and end there. It returns ErrNotAnchored when the
// anchor is not on the loop, or when the chain closed on an interior vertex
// instead of forming a clean loop, and ErrCycleBroken when the predecessor
// chain or graph state is inconsistent.
func Build(g *graph.Graph, prev map[market.Currency]market.Currency, witness graph.Edge, anchor market.Currency, notional float64, detectedAt time.Time) (Opportunity, error) {
	cycle, err := ReconstructCycle(prev, witness)
	if err != nil {
		return Opportunity{}, err
	}
	if cycle[0] != cycle[len(cycle)-1] {
		return Opportunity{}, ErrNotAnchored
	}
	cycle, ok := rotateToAnchor(cycle, anchor)
	if !ok {
		return Opportunity{}, ErrNotAnchored
	}
	return Evaluate(g, cycle, anchor, notional, detectedAt)
}

// rotateToAnchor re-roots a closed cycle (first == last element) at anchor.
// Reports false when the anchor does not appear on the loop.
func rotateToAnchor(cycle []market.Currency, anchor market.Currency) ([]market.Currency, bool) {
	if cycle[0] == anchor {
		return cycle, true
	}
	loop := cycle[:len(cycle)-1]
	for i, c := range loop {
		if c != anchor {
			continue
		}
		out := make([]market.Currency, 0, len(cycle))
		out = append(out, loop[i:]...)
		out = append(out, loop[:i]...)
		out = append(out, anchor)
		return out, true
	}
	return nil, false
}

// Evaluate walks the cycle applying the real exchange rate of each leg,
// recovered from the stored log weight, to a running amount.
func Evaluate(g *graph.Graph, cycle []market.Currency, anchor market.Currency, notional float64, detectedAt time.Time) (Opportunity, error) {
	amount := notional
	legs := make([]Leg, 0, len(cycle)-1)

	for i := 0; i+1 < len(cycle); i++ {
		from, to := cycle[i], cycle[i+1]
		w, ok := g.Weight(from, to)
		if !ok {
			return Opportunity{}, fmt.Errorf("%w: edge %s->%s missing", ErrCycleBroken, from, to)
		}
		rate := math.Pow(10, -w)
		amount *= rate
		legs = append(legs, Leg{
			From:   from,
			To:     to,
			Rate:   decimal.NewFromFloat(rate),
			Amount: decimal.NewFromFloat(amount),
		})
	}

	notionalDec := decimal.NewFromFloat(notional)
	finalDec := decimal.NewFromFloat(amount)
	profit := finalDec.Div(notionalDec).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))

	return Opportunity{
		DetectedAt:  detectedAt,
		Anchor:      anchor,
		Cycle:       cycle,
		Notional:    notionalDec,
		FinalAmount: finalDec,
		ProfitPct:   profit,
		Legs:        legs,
	}, nil
}

// FormatText renders the trade sequence as a human-readable block.
func (o Opportunity) FormatText() string {
	var b strings.Builder
	b.WriteString("ARBITRAGE:\n")
	fmt.Fprintf(&b, "\tstart with %s %s\n", o.Anchor, o.Notional.String())
	for _, leg := range o.Legs {
		fmt.Fprintf(&b, "\texchange %s for %s at %s --> %s %s\n",
			leg.From, leg.To, leg.Rate.StringFixed(6), leg.To, leg.Amount.StringFixed(6))
	}
	return b.String()
}

// CycleStrings returns the cycle as plain strings for storage and alerting.
func (o Opportunity) CycleStrings() []string {
	out := make([]string, len(o.Cycle))
	for i, c := range o.Cycle {
		out[i] = string(c)
	}
	return out
}
