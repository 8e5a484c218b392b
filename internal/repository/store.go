package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indiesaasdeals/deals-api/internal/domain"
)

// Store is the persistence surface the deal service depends on.
type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	GetDealByID(ctx context.Context, id string) (domain.Deal, error)
	GetDealBySlug(ctx context.Context, slug string) (domain.Deal, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateDeal(ctx context.Context, arg UpdateDealParams) (domain.Deal, error)
	UpdateDealStatus(ctx context.Context, id string, status domain.DealStatus, reason string) (domain.Deal, error)
	ListLiveDeals(ctx context.Context, category string) ([]domain.Deal, error)
	ClaimUniqueCode(ctx context.Context, dealID, userID string) (string, error)
	GetUniversalCode(ctx context.Context, dealID string) (string, error)
	GetUserClaimedCode(ctx context.Context, dealID, userID string) (string, error)
	IncrementViews(ctx context.Context, slug string) error
	IncrementClicks(ctx context.Context, slug string) error
	ExpireDueDeals(ctx context.Context, now time.Time) (int64, error)
}

// Querier is the subset available inside a transaction. Deal creation and
// code insertion only ever happen together, inside ExecTx.
type Querier interface {
	CreateDeal(ctx context.Context, arg CreateDealParams) (domain.Deal, error)
	InsertCodes(ctx context.Context, dealID string, universal bool, codes []string) error
}

type store struct {
	pool    *pgxpool.Pool
	queries *Queries
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		pool:    pool,
		queries: NewQueries(pool),
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.queries.WithTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *store) GetDealByID(ctx context.Context, id string) (domain.Deal, error) {
	return s.queries.GetDealByID(ctx, id)
}

func (s *store) GetDealBySlug(ctx context.Context, slug string) (domain.Deal, error) {
	return s.queries.GetDealBySlug(ctx, slug)
}

func (s *store) SlugExists(ctx context.Context, slug string) (bool, error) {
	return s.queries.SlugExists(ctx, slug)
}

func (s *store) UpdateDeal(ctx context.Context, arg UpdateDealParams) (domain.Deal, error) {
	return s.queries.UpdateDeal(ctx, arg)
}

func (s *store) UpdateDealStatus(ctx context.Context, id string, status domain.DealStatus, reason string) (domain.Deal, error) {
	return s.queries.UpdateDealStatus(ctx, id, status, reason)
}

func (s *store) ListLiveDeals(ctx context.Context, category string) ([]domain.Deal, error) {
	return s.queries.ListLiveDeals(ctx, category)
}

func (s *store) ClaimUniqueCode(ctx context.Context, dealID, userID string) (string, error) {
	return s.queries.ClaimUniqueCode(ctx, dealID, userID)
}

func (s *store) GetUniversalCode(ctx context.Context, dealID string) (string, error) {
	return s.queries.GetUniversalCode(ctx, dealID)
}

func (s *store) GetUserClaimedCode(ctx context.Context, dealID, userID string) (string, error) {
	return s.queries.GetUserClaimedCode(ctx, dealID, userID)
}

func (s *store) IncrementViews(ctx context.Context, slug string) error {
	return s.queries.IncrementViews(ctx, slug)
}

func (s *store) IncrementClicks(ctx context.Context, slug string) error {
	return s.queries.IncrementClicks(ctx, slug)
}

func (s *store) ExpireDueDeals(ctx context.Context, now time.Time) (int64, error) {
	return s.queries.ExpireDueDeals(ctx, now)
}
