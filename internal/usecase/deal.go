package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/indiesaasdeals/deals-api/internal/domain"
	"github.com/indiesaasdeals/deals-api/internal/repository"
	"github.com/indiesaasdeals/deals-api/internal/slug"
	"github.com/indiesaasdeals/deals-api/internal/validation"
)

type DealService struct {
	store  repository.Store
	events EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewDealService(store repository.Store, events EventPublisher, logger zerolog.Logger) *DealService {
	return &DealService{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// SubmitDeal validates a founder's submission, allocates a slug, and
// persists the deal together with its code pool in one transaction, so a
// failed code batch rolls the deal back as well.
func (s *DealService) SubmitDeal(ctx context.Context, founderID string, req *validation.SubmitRequest) (*domain.Deal, error) {
	sub, err := validation.ValidateSubmission(req, s.now())
	if err != nil {
		return nil, err
	}

	dealSlug, err := s.allocateSlug(ctx, sub.Title)
	if err != nil {
		return nil, err
	}

	var deal domain.Deal
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		deal, err = q.CreateDeal(ctx, repository.CreateDealParams{
			FounderID:  founderID,
			Slug:       dealSlug,
			Submission: sub,
		})
		if err != nil {
			return err
		}
		universal := sub.Codes.Kind == domain.CodeKindUniversal
		return q.InsertCodes(ctx, deal.ID, universal, sub.Codes.Codes)
	})
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return nil, domain.ErrSlugCollision
		}
		return nil, err
	}

	s.events.DealCreated(ctx, &deal)
	return &deal, nil
}

// allocateSlug derives a slug from the title, retrying exactly once with a
// random suffix on collision. The timestamp suffix makes a second collision
// vanishingly rare; if it happens anyway the insert surfaces it.
func (s *DealService) allocateSlug(ctx context.Context, title string) (string, error) {
	candidate := slug.Make(title)
	exists, err := s.store.SlugExists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if exists {
		candidate = slug.WithRandomSuffix(candidate)
	}
	return candidate, nil
}

// UpdateDeal edits a deal the founder owns while it is still editable.
// Editing a rejected deal resubmits it for review and clears the prior
// rejection reason; the slug is recomputed only when the title changed.
func (s *DealService) UpdateDeal(ctx context.Context, founderID, dealID string, req *validation.EditRequest) (*domain.Deal, error) {
	edit, err := validation.ValidateEdit(req, s.now())
	if err != nil {
		return nil, err
	}

	existing, err := s.ownedDeal(ctx, founderID, dealID)
	if err != nil {
		return nil, err
	}
	if !existing.Status.Editable() {
		return nil, domain.ErrNotEditable
	}

	dealSlug := existing.Slug
	if edit.Title != existing.Title {
		dealSlug, err = s.allocateSlug(ctx, edit.Title)
		if err != nil {
			return nil, err
		}
	}

	status := existing.Status
	if status == domain.StatusRejected {
		status = domain.StatusPendingReview
	}

	deal, err := s.store.UpdateDeal(ctx, repository.UpdateDealParams{
		ID:     dealID,
		Slug:   dealSlug,
		Status: status,
		Edit:   edit,
	})
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return nil, domain.ErrSlugCollision
		}
		return nil, err
	}

	s.events.DealUpdated(ctx, &deal)
	return &deal, nil
}

func (s *DealService) GetDealForEdit(ctx context.Context, founderID, dealID string) (*domain.Deal, error) {
	deal, err := s.ownedDeal(ctx, founderID, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.Status.Editable() {
		return nil, domain.ErrNotEditable
	}
	return deal, nil
}

// ownedDeal fetches a deal iff the founder owns it. Missing and not-owned
// collapse into the same error so existence does not leak.
func (s *DealService) ownedDeal(ctx context.Context, founderID, dealID string) (*domain.Deal, error) {
	deal, err := s.store.GetDealByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if deal.FounderID != founderID {
		return nil, domain.ErrNotFound
	}
	return &deal, nil
}

func (s *DealService) ApproveDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return s.reviewTransition(ctx, dealID, domain.StatusPendingReview, domain.StatusLive, "")
}

func (s *DealService) RejectDeal(ctx context.Context, dealID, reason string) (*domain.Deal, error) {
	clean := validation.Sanitize(reason, 500)
	if clean == "" {
		return nil, domain.NewValidationError(domain.CodeMissingField, "reason", "a rejection reason is required")
	}
	return s.reviewTransition(ctx, dealID, domain.StatusPendingReview, domain.StatusRejected, clean)
}

func (s *DealService) PauseDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return s.reviewTransition(ctx, dealID, domain.StatusLive, domain.StatusPaused, "")
}

func (s *DealService) ResumeDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return s.reviewTransition(ctx, dealID, domain.StatusPaused, domain.StatusLive, "")
}

func (s *DealService) reviewTransition(ctx context.Context, dealID string, from, to domain.DealStatus, reason string) (*domain.Deal, error) {
	deal, err := s.store.GetDealByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if deal.Status != from {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.store.UpdateDealStatus(ctx, dealID, to, reason)
	if err != nil {
		return nil, err
	}

	s.events.DealStatusChanged(ctx, &updated)
	return &updated, nil
}

// ClaimDeal hands the caller one code. Universal deals share a single code
// without mutation. Unique deals allocate exactly one row per claimant
// atomically; a repeat claim by the same user returns their existing code.
func (s *DealService) ClaimDeal(ctx context.Context, userID, dealID string) (string, error) {
	deal, err := s.store.GetDealByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	if deal.Status != domain.StatusLive || !deal.ExpiresAt.After(s.now()) {
		return "", domain.ErrDealNotLive
	}

	code, err := s.store.GetUniversalCode(ctx, dealID)
	if err == nil {
		s.events.DealClaimed(ctx, &deal, userID)
		return code, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	if code, err := s.store.GetUserClaimedCode(ctx, dealID, userID); err == nil {
		return code, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	code, err = s.store.ClaimUniqueCode(ctx, dealID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrSoldOut
		}
		return "", err
	}

	s.events.DealClaimed(ctx, &deal, userID)
	return code, nil
}

// GetLiveDeal serves the public deal page and counts the view. The expiry
// check covers deals the lazy sweep has not flipped yet.
func (s *DealService) GetLiveDeal(ctx context.Context, dealSlug string) (*domain.Deal, error) {
	deal, err := s.store.GetDealBySlug(ctx, dealSlug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if deal.Status != domain.StatusLive || !deal.ExpiresAt.After(s.now()) {
		return nil, domain.ErrNotFound
	}

	if err := s.store.IncrementViews(ctx, dealSlug); err != nil {
		s.logger.Warn().Err(err).Str("slug", dealSlug).Msg("failed to count view")
	}
	return &deal, nil
}

func (s *DealService) ListLiveDeals(ctx context.Context, category string) ([]domain.Deal, error) {
	if n, err := s.store.ExpireDueDeals(ctx, s.now()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to expire due deals")
	} else if n > 0 {
		s.logger.Info().Int64("count", n).Msg("expired due deals")
	}
	return s.store.ListLiveDeals(ctx, category)
}

func (s *DealService) TrackClick(ctx context.Context, dealSlug string) error {
	return s.store.IncrementClicks(ctx, dealSlug)
}

var _ DealGateway = (*DealService)(nil)
