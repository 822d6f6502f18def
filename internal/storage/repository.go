package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertOpportunitySQL = `INSERT INTO opportunities (
        detected_at,
        anchor,
        cycle,
        notional,
        final_amount,
        profit_pct,
        legs
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	// NUMERIC columns come back as text so decimal parsing stays lossless.
	listRecentOpportunitiesSQL = `SELECT
        id,
        detected_at,
        anchor,
        cycle,
        notional::text,
        final_amount::text,
        profit_pct::text,
        legs,
        created_at
    FROM opportunities
    ORDER BY detected_at DESC
    LIMIT $1;`

	listOpportunitiesBetweenSQL = `SELECT
        id,
        detected_at,
        anchor,
        cycle,
        notional::text,
        final_amount::text,
        profit_pct::text,
        legs,
        created_at
    FROM opportunities
    WHERE detected_at >= $1
      AND detected_at < $2
    ORDER BY detected_at;`

	deleteOpportunitiesBeforeSQL = `DELETE FROM opportunities WHERE detected_at < $1;`

	countOpportunitiesSQL = `SELECT COUNT(*) FROM opportunities;`
)

// OpportunityStore defines operations for arbitrage report persistence.
type OpportunityStore interface {
	InsertOpportunity(ctx context.Context, rec OpportunityRecord) (OpportunityRecord, error)
	ListRecentOpportunities(ctx context.Context, limit int) ([]OpportunityRecord, error)
	ListOpportunitiesBetween(ctx context.Context, from, to time.Time) ([]OpportunityRecord, error)
	DeleteOpportunitiesBefore(ctx context.Context, olderThan time.Time) error
	CountOpportunities(ctx context.Context) (int64, error)
}

// Store aggregates access to detected opportunities.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertOpportunity persists one detection.
func (s *Store) InsertOpportunity(ctx context.Context, rec OpportunityRecord) (OpportunityRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return OpportunityRecord{}, err
	}

	row := pool.QueryRow(ctx, insertOpportunitySQL,
		rec.DetectedAt,
		rec.Anchor,
		rec.Cycle,
		rec.Notional.String(),
		rec.FinalAmount.String(),
		rec.ProfitPct.String(),
		[]byte(rec.Legs),
	)

	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return OpportunityRecord{}, fmt.Errorf("insert opportunity: %w", scanErr)
	}
	return rec, nil
}

// ListRecentOpportunities lists the most recent detections.
func (s *Store) ListRecentOpportunities(ctx context.Context, limit int) ([]OpportunityRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentOpportunitiesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent opportunities: %w", queryErr)
	}
	defer rows.Close()

	records := make([]OpportunityRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanOpportunity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListOpportunitiesBetween lists detections within a time window.
func (s *Store) ListOpportunitiesBetween(ctx context.Context, from, to time.Time) ([]OpportunityRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listOpportunitiesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list opportunities between: %w", queryErr)
	}
	defer rows.Close()

	records := make([]OpportunityRecord, 0)
	for rows.Next() {
		rec, scanErr := scanOpportunity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// DeleteOpportunitiesBefore deletes historical detections.
func (s *Store) DeleteOpportunitiesBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteOpportunitiesBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete opportunities before: %w", execErr)
	}
	return nil
}

// CountOpportunities counts stored detections.
func (s *Store) CountOpportunities(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countOpportunitiesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count opportunities: %w", scanErr)
	}
	return count, nil
}

func scanOpportunity(rows pgx.Rows) (OpportunityRecord, error) {
	var (
		rec         OpportunityRecord
		notionalStr string
		finalStr    string
		profitStr   string
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.DetectedAt,
		&rec.Anchor,
		&rec.Cycle,
		&notionalStr,
		&finalStr,
		&profitStr,
		&rec.Legs,
		&rec.CreatedAt,
	); err != nil {
		return OpportunityRecord{}, err
	}

	var err error
	rec.Notional, err = decimal.NewFromString(notionalStr)
	if err != nil {
		return OpportunityRecord{}, fmt.Errorf("parse notional: %w", err)
	}
	rec.FinalAmount, err = decimal.NewFromString(finalStr)
	if err != nil {
		return OpportunityRecord{}, fmt.Errorf("parse final amount: %w", err)
	}
	rec.ProfitPct, err = decimal.NewFromString(profitStr)
	if err != nil {
		return OpportunityRecord{}, fmt.Errorf("parse profit pct: %w", err)
	}

	return rec, nil
}
