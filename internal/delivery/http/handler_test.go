package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indiesaasdeals/deals-api/internal/auth"
	"github.com/indiesaasdeals/deals-api/internal/domain"
	"github.com/indiesaasdeals/deals-api/internal/usecase"
	"github.com/indiesaasdeals/deals-api/internal/validation"
)

type fakeGateway struct {
	submitDealFn     func(ctx context.Context, founderID string, req *validation.SubmitRequest) (*domain.Deal, error)
	updateDealFn     func(ctx context.Context, founderID, dealID string, req *validation.EditRequest) (*domain.Deal, error)
	getDealForEditFn func(ctx context.Context, founderID, dealID string) (*domain.Deal, error)
	approveDealFn    func(ctx context.Context, dealID string) (*domain.Deal, error)
	rejectDealFn     func(ctx context.Context, dealID, reason string) (*domain.Deal, error)
	pauseDealFn      func(ctx context.Context, dealID string) (*domain.Deal, error)
	resumeDealFn     func(ctx context.Context, dealID string) (*domain.Deal, error)
	claimDealFn      func(ctx context.Context, userID, dealID string) (string, error)
	getLiveDealFn    func(ctx context.Context, slug string) (*domain.Deal, error)
	listLiveDealsFn  func(ctx context.Context, category string) ([]domain.Deal, error)
	trackClickFn     func(ctx context.Context, slug string) error
}

func (f *fakeGateway) SubmitDeal(ctx context.Context, founderID string, req *validation.SubmitRequest) (*domain.Deal, error) {
	return f.submitDealFn(ctx, founderID, req)
}

func (f *fakeGateway) UpdateDeal(ctx context.Context, founderID, dealID string, req *validation.EditRequest) (*domain.Deal, error) {
	return f.updateDealFn(ctx, founderID, dealID, req)
}

func (f *fakeGateway) GetDealForEdit(ctx context.Context, founderID, dealID string) (*domain.Deal, error) {
	return f.getDealForEditFn(ctx, founderID, dealID)
}

func (f *fakeGateway) ApproveDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return f.approveDealFn(ctx, dealID)
}

func (f *fakeGateway) RejectDeal(ctx context.Context, dealID, reason string) (*domain.Deal, error) {
	return f.rejectDealFn(ctx, dealID, reason)
}

func (f *fakeGateway) PauseDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return f.pauseDealFn(ctx, dealID)
}

func (f *fakeGateway) ResumeDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return f.resumeDealFn(ctx, dealID)
}

func (f *fakeGateway) ClaimDeal(ctx context.Context, userID, dealID string) (string, error) {
	return f.claimDealFn(ctx, userID, dealID)
}

func (f *fakeGateway) GetLiveDeal(ctx context.Context, slug string) (*domain.Deal, error) {
	return f.getLiveDealFn(ctx, slug)
}

func (f *fakeGateway) ListLiveDeals(ctx context.Context, category string) ([]domain.Deal, error) {
	return f.listLiveDealsFn(ctx, category)
}

func (f *fakeGateway) TrackClick(ctx context.Context, slug string) error {
	return f.trackClickFn(ctx, slug)
}

var _ usecase.DealGateway = (*fakeGateway)(nil)

type fakeLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

const testAdminKey = "test-admin-key"

func newTestRouter(gateway usecase.DealGateway, limiter *fakeLimiter) chi.Router {
	if limiter == nil {
		limiter = &fakeLimiter{}
	}
	h := NewHandler(gateway, limiter, auth.HeaderProvider{}, testAdminKey, 64*1024, zerolog.Nop())
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func submitBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"productName":      "Shipfast",
		"productWebsite":   "https://shipfast.example.com",
		"title":            "Shipfast Lifetime Deal",
		"description":      "Ship your SaaS faster.",
		"shortDescription": "60% off.",
		"category":         "Developer Tools",
		"originalPrice":    100,
		"dealPrice":        40,
		"expiresAt":        time.Now().Add(20 * 24 * time.Hour).Format(time.RFC3339),
		"discountCodes":    map[string]any{"type": "universal", "code": "SAVE60"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func doRequest(t *testing.T, r chi.Router, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSubmitDeal_Created(t *testing.T) {
	gateway := &fakeGateway{
		submitDealFn: func(ctx context.Context, founderID string, req *validation.SubmitRequest) (*domain.Deal, error) {
			if founderID != "founder-1" {
				t.Errorf("expected founder-1, got %s", founderID)
			}
			return &domain.Deal{
				ID:     "deal-1",
				Slug:   "shipfast-lifetime-deal-1700000000000",
				Title:  "Shipfast Lifetime Deal",
				Status: domain.StatusPendingReview,
			}, nil
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals", submitBody(t), map[string]string{"X-User-ID": "founder-1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Deal.Status != "pending_review" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSubmitDeal_MissingUser(t *testing.T) {
	r := newTestRouter(&fakeGateway{}, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals", submitBody(t), nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSubmitDeal_ValidationError(t *testing.T) {
	gateway := &fakeGateway{
		submitDealFn: func(ctx context.Context, founderID string, req *validation.SubmitRequest) (*domain.Deal, error) {
			return nil, domain.NewValidationError(domain.CodeMissingField, "title", "field is required")
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals", submitBody(t), map[string]string{"X-User-ID": "founder-1"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "title") {
		t.Errorf("error should name the field, got %s", rec.Body.String())
	}
}

func TestSubmitDeal_RateLimited(t *testing.T) {
	limiter := &fakeLimiter{
		allowFn: func(ctx context.Context, key string) (bool, error) {
			// httptest.NewRequest sets RemoteAddr to 192.0.2.1:1234; the key
			// must carry only the host so reconnecting from a new port does
			// not open a fresh bucket.
			if key != "founder-1|192.0.2.1" {
				t.Errorf("expected key founder-1|192.0.2.1, got %q", key)
			}
			return false, nil
		},
	}

	r := newTestRouter(&fakeGateway{}, limiter)
	rec := doRequest(t, r, http.MethodPost, "/api/deals", submitBody(t), map[string]string{"X-User-ID": "founder-1"})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestSubmitDeal_BodyTooLarge(t *testing.T) {
	gateway := &fakeGateway{}
	h := NewHandler(gateway, &fakeLimiter{}, auth.HeaderProvider{}, testAdminKey, 16, zerolog.Nop())
	r := chi.NewRouter()
	h.Routes(r)

	rec := doRequest(t, r, http.MethodPost, "/api/deals", submitBody(t), map[string]string{"X-User-ID": "founder-1"})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSubmitDeal_TypeMismatchNamesField(t *testing.T) {
	r := newTestRouter(&fakeGateway{}, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals",
		[]byte(`{"title": 42}`), map[string]string{"X-User-ID": "founder-1"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "title") {
		t.Errorf("error should name the mistyped field, got %s", rec.Body.String())
	}
}

func TestSubmitDeal_MalformedJSON(t *testing.T) {
	r := newTestRouter(&fakeGateway{}, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals",
		[]byte(`{not json`), map[string]string{"X-User-ID": "founder-1"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthedHandlers_NoUserInContext(t *testing.T) {
	// Direct invocation, bypassing RequireUser: the handlers must refuse
	// rather than dereference a missing user.
	h := NewHandler(&fakeGateway{}, &fakeLimiter{}, auth.HeaderProvider{}, testAdminKey, 64*1024, zerolog.Nop())

	handlers := map[string]http.HandlerFunc{
		"UpdateDeal":     h.UpdateDeal,
		"GetDealForEdit": h.GetDealForEdit,
		"ClaimDeal":      h.ClaimDeal,
	}
	for name, fn := range handlers {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			fn(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 without a user in context, got %d", rec.Code)
			}
		})
	}
}

func TestUpdateDeal_NotEditable(t *testing.T) {
	gateway := &fakeGateway{
		updateDealFn: func(ctx context.Context, founderID, dealID string, req *validation.EditRequest) (*domain.Deal, error) {
			return nil, domain.ErrNotEditable
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPut, "/api/deals/deal-1", submitBody(t), map[string]string{"X-User-ID": "founder-1"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestClaimDeal_Success(t *testing.T) {
	gateway := &fakeGateway{
		claimDealFn: func(ctx context.Context, userID, dealID string) (string, error) {
			if userID != "user-1" || dealID != "deal-1" {
				t.Errorf("unexpected claim args: %s %s", userID, dealID)
			}
			return "ABC123", nil
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals/deal-1/claim", nil, map[string]string{"X-User-ID": "user-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ClaimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "ABC123" {
		t.Errorf("expected ABC123, got %s", resp.Code)
	}
}

func TestClaimDeal_SoldOut(t *testing.T) {
	gateway := &fakeGateway{
		claimDealFn: func(ctx context.Context, userID, dealID string) (string, error) {
			return "", domain.ErrSoldOut
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals/deal-1/claim", nil, map[string]string{"X-User-ID": "user-1"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetDeal_Public(t *testing.T) {
	gateway := &fakeGateway{
		getLiveDealFn: func(ctx context.Context, slug string) (*domain.Deal, error) {
			if slug != "shipfast-lifetime-deal-1700000000000" {
				t.Errorf("unexpected slug %q", slug)
			}
			return &domain.Deal{ID: "deal-1", Slug: slug, Status: domain.StatusLive}, nil
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodGet, "/api/deals/slug/shipfast-lifetime-deal-1700000000000", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp DealResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Tags == nil {
		t.Error("tags should serialize as an empty array, not null")
	}
}

func TestGetDeal_NotFound(t *testing.T) {
	gateway := &fakeGateway{
		getLiveDealFn: func(ctx context.Context, slug string) (*domain.Deal, error) {
			return nil, domain.ErrNotFound
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodGet, "/api/deals/slug/nope", nil, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListDeals_CategoryFilter(t *testing.T) {
	gateway := &fakeGateway{
		listLiveDealsFn: func(ctx context.Context, category string) ([]domain.Deal, error) {
			if category != "Analytics" {
				t.Errorf("expected Analytics filter, got %q", category)
			}
			return []domain.Deal{{ID: "deal-1", Status: domain.StatusLive}}, nil
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodGet, "/api/deals?category=Analytics", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Deals) != 1 {
		t.Errorf("expected 1 deal, got %d", len(resp.Deals))
	}
}

func TestTrackClick(t *testing.T) {
	clicked := ""
	gateway := &fakeGateway{
		trackClickFn: func(ctx context.Context, slug string) error {
			clicked = slug
			return nil
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/deals/slug/some-deal/click", nil, nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if clicked != "some-deal" {
		t.Errorf("expected some-deal, got %q", clicked)
	}
}

func TestAdminRoutes_RequireKey(t *testing.T) {
	gateway := &fakeGateway{
		approveDealFn: func(ctx context.Context, dealID string) (*domain.Deal, error) {
			return &domain.Deal{ID: dealID, Status: domain.StatusLive}, nil
		},
	}
	r := newTestRouter(gateway, nil)

	rec := doRequest(t, r, http.MethodPost, "/api/admin/deals/deal-1/approve", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin key, got %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodPost, "/api/admin/deals/deal-1/approve", nil,
		map[string]string{"X-Admin-Key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong admin key, got %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodPost, "/api/admin/deals/deal-1/approve", nil,
		map[string]string{"X-Admin-Key": testAdminKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with admin key, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRejectDeal_PassesReason(t *testing.T) {
	var gotReason string
	gateway := &fakeGateway{
		rejectDealFn: func(ctx context.Context, dealID, reason string) (*domain.Deal, error) {
			gotReason = reason
			return &domain.Deal{ID: dealID, Status: domain.StatusRejected, RejectionReason: reason}, nil
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/admin/deals/deal-1/reject",
		[]byte(`{"reason": "pricing looks wrong"}`),
		map[string]string{"X-Admin-Key": testAdminKey})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotReason != "pricing looks wrong" {
		t.Errorf("expected reason to pass through, got %q", gotReason)
	}
}

func TestApproveDeal_InvalidTransition(t *testing.T) {
	gateway := &fakeGateway{
		approveDealFn: func(ctx context.Context, dealID string) (*domain.Deal, error) {
			return nil, domain.ErrInvalidTransition
		},
	}

	r := newTestRouter(gateway, nil)
	rec := doRequest(t, r, http.MethodPost, "/api/admin/deals/deal-1/approve", nil,
		map[string]string{"X-Admin-Key": testAdminKey})

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
