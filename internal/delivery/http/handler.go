package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indiesaasdeals/deals-api/internal/auth"
	"github.com/indiesaasdeals/deals-api/internal/domain"
	"github.com/indiesaasdeals/deals-api/internal/ratelimit"
	"github.com/indiesaasdeals/deals-api/internal/usecase"
	"github.com/indiesaasdeals/deals-api/internal/validation"
)

type DealSummary struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	PricingTier string    `json:"pricing_tier"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DealResponse struct {
	ID                     string    `json:"id"`
	Slug                   string    `json:"slug"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	ShortDescription       string    `json:"short_description"`
	Category               string    `json:"category"`
	Tags                   []string  `json:"tags"`
	ProductName            string    `json:"product_name"`
	ProductWebsite         string    `json:"product_website"`
	IconURL                string    `json:"icon_url,omitempty"`
	RedemptionInstructions string    `json:"redemption_instructions,omitempty"`
	OriginalPriceCents     int64     `json:"original_price_cents"`
	DealPriceCents         int64     `json:"deal_price_cents"`
	DiscountPercentage     int       `json:"discount_percentage"`
	TotalCodes             int       `json:"total_codes"`
	PricingTier            string    `json:"pricing_tier"`
	Featured               bool      `json:"featured"`
	ViewCount              int64     `json:"view_count"`
	ClickCount             int64     `json:"click_count"`
	Status                 string    `json:"status"`
	RejectionReason        string    `json:"rejection_reason,omitempty"`
	ExpiresAt              time.Time `json:"expires_at"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type SubmitResponse struct {
	Success bool        `json:"success"`
	Deal    DealSummary `json:"deal"`
}

type ClaimResponse struct {
	Code string `json:"code"`
}

type ListResponse struct {
	Deals []DealResponse `json:"deals"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type Handler struct {
	gateway   usecase.DealGateway
	limiter   ratelimit.Limiter
	authp     auth.Provider
	adminKey  string
	bodyLimit int64
	logger    zerolog.Logger
}

func NewHandler(gateway usecase.DealGateway, limiter ratelimit.Limiter, authp auth.Provider, adminKey string, bodyLimit int64, logger zerolog.Logger) *Handler {
	return &Handler{
		gateway:   gateway,
		limiter:   limiter,
		authp:     authp,
		adminKey:  adminKey,
		bodyLimit: bodyLimit,
		logger:    logger,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/deals", h.ListDeals)
		r.Get("/deals/slug/{slug}", h.GetDeal)
		r.Post("/deals/slug/{slug}/click", h.TrackClick)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(h.authp))
			r.Post("/deals", h.SubmitDeal)
			r.Put("/deals/{dealID}", h.UpdateDeal)
			r.Get("/deals/{dealID}/edit", h.GetDealForEdit)
			r.Post("/deals/{dealID}/claim", h.ClaimDeal)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(h.adminKey))
			r.Post("/deals/{dealID}/approve", h.ApproveDeal)
			r.Post("/deals/{dealID}/reject", h.RejectDeal)
			r.Post("/deals/{dealID}/pause", h.PauseDeal)
			r.Post("/deals/{dealID}/resume", h.ResumeDeal)
		})
	})
}

func (h *Handler) SubmitDeal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	allowed, err := h.limiter.Allow(r.Context(), user.ID+"|"+clientIP(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("rate limiter failure")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
		return
	}

	var req validation.SubmitRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	deal, err := h.gateway.SubmitDeal(r.Context(), user.ID, &req)
	if err != nil {
		h.writeDealError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		Success: true,
		Deal: DealSummary{
			ID:          deal.ID,
			Slug:        deal.Slug,
			Title:       deal.Title,
			Status:      string(deal.Status),
			PricingTier: deal.PricingTier,
			CreatedAt:   deal.CreatedAt,
			UpdatedAt:   deal.UpdatedAt,
		},
	})
}

func (h *Handler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	dealID := chi.URLParam(r, "dealID")

	var req validation.EditRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	deal, err := h.gateway.UpdateDeal(r.Context(), user.ID, dealID, &req)
	if err != nil {
		h.writeDealError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DealSummary{
		ID:          deal.ID,
		Slug:        deal.Slug,
		Title:       deal.Title,
		Status:      string(deal.Status),
		PricingTier: deal.PricingTier,
		CreatedAt:   deal.CreatedAt,
		UpdatedAt:   deal.UpdatedAt,
	})
}

func (h *Handler) GetDealForEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	dealID := chi.URLParam(r, "dealID")

	deal, err := h.gateway.GetDealForEdit(r.Context(), user.ID, dealID)
	if err != nil {
		h.writeDealError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDealResponse(deal))
}

func (h *Handler) ClaimDeal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	dealID := chi.URLParam(r, "dealID")

	code, err := h.gateway.ClaimDeal(r.Context(), user.ID, dealID)
	if err != nil {
		h.writeDealError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClaimResponse{Code: code})
}

func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := h.gateway.GetLiveDeal(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeDealError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDealResponse(deal))
}

func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.gateway.ListLiveDeals(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeDealError(w, err)
		return
	}

	resp := ListResponse{Deals: make([]DealResponse, 0, len(deals))}
	for i := range deals {
		resp.Deals = append(resp.Deals, toDealResponse(&deals[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) TrackClick(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.TrackClick(r.Context(), chi.URLParam(r, "slug")); err != nil {
		h.writeDealError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApproveDeal(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, func(dealID string) (*domain.Deal, error) {
		return h.gateway.ApproveDeal(r.Context(), dealID)
	})
}

func (h *Handler) RejectDeal(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.reviewAction(w, r, func(dealID string) (*domain.Deal, error) {
		return h.gateway.RejectDeal(r.Context(), dealID, req.Reason)
	})
}

func (h *Handler) PauseDeal(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, func(dealID string) (*domain.Deal, error) {
		return h.gateway.PauseDeal(r.Context(), dealID)
	})
}

func (h *Handler) ResumeDeal(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, func(dealID string) (*domain.Deal, error) {
		return h.gateway.ResumeDeal(r.Context(), dealID)
	})
}

func (h *Handler) reviewAction(w http.ResponseWriter, r *http.Request, fn func(dealID string) (*domain.Deal, error)) {
	deal, err := fn(chi.URLParam(r, "dealID"))
	if err != nil {
		h.writeDealError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DealSummary{
		ID:          deal.ID,
		Slug:        deal.Slug,
		Title:       deal.Title,
		Status:      string(deal.Status),
		PricingTier: deal.PricingTier,
		CreatedAt:   deal.CreatedAt,
		UpdatedAt:   deal.UpdatedAt,
	})
}

// clientIP extracts the host from RemoteAddr, which is ip:port for direct
// connections (RealIP rewrites it to a bare IP when forwarding headers are
// present). The port must not leak into rate-limit keys or every new
// connection would get a fresh bucket.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// decodeBody reads a capped JSON body into dst, writing the appropriate
// error response on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.bodyLimit)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.As(err, &typeErr):
			writeError(w, http.StatusBadRequest, typeErr.Field+": unexpected type")
		default:
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

func (h *Handler) writeDealError(w http.ResponseWriter, err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDealNotLive):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrNotEditable):
		writeError(w, http.StatusForbidden, domain.ErrNotEditable.Error())
	case errors.Is(err, domain.ErrSlugCollision):
		writeError(w, http.StatusConflict, domain.ErrSlugCollision.Error())
	case errors.Is(err, domain.ErrSoldOut):
		writeError(w, http.StatusConflict, domain.ErrSoldOut.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, domain.ErrInvalidTransition.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func toDealResponse(d *domain.Deal) DealResponse {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return DealResponse{
		ID:                     d.ID,
		Slug:                   d.Slug,
		Title:                  d.Title,
		Description:            d.Description,
		ShortDescription:       d.ShortDescription,
		Category:               d.Category,
		Tags:                   tags,
		ProductName:            d.ProductName,
		ProductWebsite:         d.ProductWebsite,
		IconURL:                d.IconURL,
		RedemptionInstructions: d.RedemptionInstructions,
		OriginalPriceCents:     d.OriginalPriceCents,
		DealPriceCents:         d.DealPriceCents,
		DiscountPercentage:     d.DiscountPercentage,
		TotalCodes:             d.TotalCodes,
		PricingTier:            d.PricingTier,
		Featured:               d.Featured,
		ViewCount:              d.ViewCount,
		ClickCount:             d.ClickCount,
		Status:                 string(d.Status),
		RejectionReason:        d.RejectionReason,
		ExpiresAt:              d.ExpiresAt,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
