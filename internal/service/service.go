package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-arb-watch/internal/alerting"
	"fx-arb-watch/internal/config"
	"fx-arb-watch/internal/engine"
	"fx-arb-watch/internal/feed"
	"fx-arb-watch/internal/market"
	"fx-arb-watch/internal/metrics"
	"fx-arb-watch/internal/report"
	"fx-arb-watch/internal/scheduler"
	"fx-arb-watch/internal/storage"
)

// Service orchestrates one subscription session: feed batches flow through
// the detection engine, and the engine's events fan out to metrics,
// persistence, and alerting.
type Service struct {
	engine   *engine.Engine
	listener *feed.Listener
	ticker   *scheduler.Scheduler
	store    storage.OpportunityStore
	notifier alerting.Notifier
	logger   zerolog.Logger

	minProfit decimal.Decimal
	alertsOn  bool
}

// New constructs the subscription service. The engine is built here so the
// service is its observer; store and notifier may be nil.
func New(cfg *config.Config, listener *feed.Listener, store storage.OpportunityStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	minProfit := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.MinProfitPct > 0 {
		minProfit = decimal.NewFromFloat(cfg.Alerting.MinProfitPct)
	}

	s := &Service{
		listener:  listener,
		store:     store,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		minProfit: minProfit,
		alertsOn:  cfg.Alerting.Enabled,
	}

	s.engine = engine.New(engine.Config{
		QuoteExpiration: cfg.Engine.QuoteExpiration,
		Anchor:          cfg.Anchor(),
		Notional:        cfg.Engine.Notional,
	}, s, logger)

	if cfg.Status.Interval > 0 {
		s.ticker = scheduler.New(scheduler.Options{
			Interval:     cfg.Status.Interval,
			StartupDelay: cfg.Status.StartupDelay,
		}, logger)
	}

	return s
}

// Run blocks until the subscription goes idle or ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("feed listener not configured")
	}

	if s.ticker != nil {
		tickCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			_ = s.ticker.Run(tickCtx, s.statusTick)
		}()
	}

	return s.listener.Run(ctx, s.HandleBatch)
}

// HandleBatch processes one received batch through the engine.
func (s *Service) HandleBatch(ctx context.Context, quotes []market.Quote, received time.Time) {
	metrics.BatchesReceivedTotal.Inc()

	start := time.Now()
	s.engine.ProcessBatch(ctx, quotes, received)
	metrics.BatchProcessingSeconds.Observe(time.Since(start).Seconds())

	stats := s.engine.Stats()
	metrics.GraphVertices.Set(float64(stats.Vertices))
	metrics.GraphEdges.Set(float64(stats.Edges))
	metrics.TrackedPairs.Set(float64(stats.TrackedPairs))
}

func (s *Service) statusTick(ctx context.Context, now time.Time) error {
	stats := s.engine.Stats()
	s.logger.Info().
		Int("vertices", stats.Vertices).
		Int("edges", stats.Edges).
		Int("tracked_pairs", stats.TrackedPairs).
		Msg("engine status")
	return nil
}

// QuoteAccepted implements engine.Observer.
func (s *Service) QuoteAccepted(ctx context.Context, q market.Quote) {
	metrics.QuotesAcceptedTotal.Inc()
	if q.Price <= 0 {
		metrics.QuotesSequencingOnlyTotal.Inc()
	}
}

// QuoteOutOfSequence implements engine.Observer.
func (s *Service) QuoteOutOfSequence(ctx context.Context, q market.Quote, lastSeen time.Time) {
	metrics.QuotesOutOfSequenceTotal.Inc()
}

// StalePairRemoved implements engine.Observer.
func (s *Service) StalePairRemoved(ctx context.Context, cross market.Cross, lastSeen time.Time) {
	metrics.StalePairsRemovedTotal.Inc()
}

// CycleDiscarded implements engine.Observer.
func (s *Service) CycleDiscarded(ctx context.Context, err error) {
	metrics.CyclesDiscardedTotal.Inc()
}

// OpportunityFound implements engine.Observer: count, persist, alert.
func (s *Service) OpportunityFound(ctx context.Context, opp report.Opportunity) {
	metrics.OpportunitiesFoundTotal.Inc()

	if s.store != nil {
		if _, err := s.store.InsertOpportunity(ctx, toRecord(opp)); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist opportunity")
		}
	}

	if s.alertsOn && s.notifier != nil && opp.ProfitPct.GreaterThanOrEqual(s.minProfit) {
		if err := s.notifier.Notify(ctx, toNotification(opp)); err != nil {
			s.logger.Error().Err(err).Msg("failed to dispatch alert")
		}
	}
}

func toRecord(opp report.Opportunity) storage.OpportunityRecord {
	legs := make([]storage.LegRecord, len(opp.Legs))
	for i, leg := range opp.Legs {
		legs[i] = storage.LegRecord{
			From:   string(leg.From),
			To:     string(leg.To),
			Rate:   leg.Rate.String(),
			Amount: leg.Amount.String(),
		}
	}
	raw, err := json.Marshal(legs)
	if err != nil {
		raw = []byte("[]")
	}

	return storage.OpportunityRecord{
		DetectedAt:  opp.DetectedAt,
		Anchor:      string(opp.Anchor),
		Cycle:       opp.CycleStrings(),
		Notional:    opp.Notional,
		FinalAmount: opp.FinalAmount,
		ProfitPct:   opp.ProfitPct,
		Legs:        raw,
	}
}

func toNotification(opp report.Opportunity) alerting.Notification {
	legs := make([]alerting.Leg, len(opp.Legs))
	for i, leg := range opp.Legs {
		legs[i] = alerting.Leg{
			From:   string(leg.From),
			To:     string(leg.To),
			Rate:   leg.Rate,
			Amount: leg.Amount,
		}
	}
	return alerting.Notification{
		DetectedAt:  opp.DetectedAt,
		Anchor:      string(opp.Anchor),
		Cycle:       opp.CycleStrings(),
		Notional:    opp.Notional,
		FinalAmount: opp.FinalAmount,
		ProfitPct:   opp.ProfitPct,
		Legs:        legs,
	}
}

var _ engine.Observer = (*Service)(nil)
