package usecase

import (
	"context"

	"github.com/indiesaasdeals/deals-api/internal/domain"
	"github.com/indiesaasdeals/deals-api/internal/validation"
)

// DealGateway is what the HTTP layer talks to.
type DealGateway interface {
	SubmitDeal(ctx context.Context, founderID string, req *validation.SubmitRequest) (*domain.Deal, error)
	UpdateDeal(ctx context.Context, founderID, dealID string, req *validation.EditRequest) (*domain.Deal, error)
	GetDealForEdit(ctx context.Context, founderID, dealID string) (*domain.Deal, error)
	ApproveDeal(ctx context.Context, dealID string) (*domain.Deal, error)
	RejectDeal(ctx context.Context, dealID, reason string) (*domain.Deal, error)
	PauseDeal(ctx context.Context, dealID string) (*domain.Deal, error)
	ResumeDeal(ctx context.Context, dealID string) (*domain.Deal, error)
	ClaimDeal(ctx context.Context, userID, dealID string) (string, error)
	GetLiveDeal(ctx context.Context, slug string) (*domain.Deal, error)
	ListLiveDeals(ctx context.Context, category string) ([]domain.Deal, error)
	TrackClick(ctx context.Context, slug string) error
}

// EventPublisher announces lifecycle changes to the side-channels that keep
// the public site fresh (sitemap regeneration, page cache invalidation).
// Publishing is fire-and-forget; failures never fail the request.
type EventPublisher interface {
	DealCreated(ctx context.Context, deal *domain.Deal)
	DealUpdated(ctx context.Context, deal *domain.Deal)
	DealStatusChanged(ctx context.Context, deal *domain.Deal)
	DealClaimed(ctx context.Context, deal *domain.Deal, userID string)
}
