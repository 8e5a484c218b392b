// Package validation turns untrusted deal submission payloads into
// normalized records or a rejection naming the offending field. It is pure:
// persistence, rate limiting, and slug allocation belong to the caller.
package validation

import (
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/indiesaasdeals/deals-api/internal/domain"
)

const (
	maxProductName            = 100
	maxTitle                  = 200
	maxDescription            = 5000
	maxShortDescription       = 500
	maxRedemptionInstructions = 1000
	maxTag                    = 50
	maxTags                   = 10

	maxPrice       = 10000
	minDiscountPct = 10

	maxExpiryWindow = 365 * 24 * time.Hour

	maxUniqueCodes        = 10000
	defaultUniversalTotal = 1000
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// SubmitRequest mirrors the JSON body of a deal submission. Pointer fields
// distinguish absent from empty so missing fields can be named.
type SubmitRequest struct {
	ProductName            *string        `json:"productName"`
	ProductWebsite         *string        `json:"productWebsite"`
	Title                  *string        `json:"title"`
	Description            *string        `json:"description"`
	ShortDescription       *string        `json:"shortDescription"`
	Category               *string        `json:"category"`
	OriginalPrice          *json.Number   `json:"originalPrice"`
	DealPrice              *json.Number   `json:"dealPrice"`
	TotalCodes             *json.Number   `json:"totalCodes"`
	ExpiresAt              *string        `json:"expiresAt"`
	Tags                   []any          `json:"tags"`
	IconURL                *string        `json:"iconUrl"`
	RedemptionInstructions *string        `json:"redemptionInstructions"`
	DiscountCodes          *DiscountCodes `json:"discountCodes"`
}

// DiscountCodes is the polymorphic code payload: either one reusable
// universal code or a batch of unique single-use codes.
type DiscountCodes struct {
	Type  string   `json:"type"`
	Code  string   `json:"code"`
	Codes []string `json:"codes"`
}

// EditRequest is the submission field set minus the code pool, which is
// immutable after the first submission.
type EditRequest struct {
	ProductName            *string      `json:"productName"`
	ProductWebsite         *string      `json:"productWebsite"`
	Title                  *string      `json:"title"`
	Description            *string      `json:"description"`
	ShortDescription       *string      `json:"shortDescription"`
	Category               *string      `json:"category"`
	OriginalPrice          *json.Number `json:"originalPrice"`
	DealPrice              *json.Number `json:"dealPrice"`
	ExpiresAt              *string      `json:"expiresAt"`
	Tags                   []any        `json:"tags"`
	IconURL                *string      `json:"iconUrl"`
	RedemptionInstructions *string      `json:"redemptionInstructions"`
}

// ValidateSubmission checks and normalizes a full deal submission.
func ValidateSubmission(req *SubmitRequest, now time.Time) (*domain.DealSubmission, error) {
	core, err := validateCore(coreFields{
		ProductName:            req.ProductName,
		ProductWebsite:         req.ProductWebsite,
		Title:                  req.Title,
		Description:            req.Description,
		ShortDescription:       req.ShortDescription,
		Category:               req.Category,
		OriginalPrice:          req.OriginalPrice,
		DealPrice:              req.DealPrice,
		ExpiresAt:              req.ExpiresAt,
		Tags:                   req.Tags,
		IconURL:                req.IconURL,
		RedemptionInstructions: req.RedemptionInstructions,
	}, now)
	if err != nil {
		return nil, err
	}

	pool, total, err := validateCodes(req.DiscountCodes, req.TotalCodes)
	if err != nil {
		return nil, err
	}

	return &domain.DealSubmission{
		Title:                  core.Title,
		Description:            core.Description,
		ShortDescription:       core.ShortDescription,
		Category:               core.Category,
		Tags:                   core.Tags,
		ProductName:            core.ProductName,
		ProductWebsite:         core.ProductWebsite,
		IconURL:                core.IconURL,
		RedemptionInstructions: core.RedemptionInstructions,
		OriginalPriceCents:     core.OriginalPriceCents,
		DealPriceCents:         core.DealPriceCents,
		DiscountPercentage:     core.DiscountPercentage,
		TotalCodes:             total,
		ExpiresAt:              core.ExpiresAt,
		Codes:                  *pool,
	}, nil
}

// ValidateEdit checks and normalizes an edit payload.
func ValidateEdit(req *EditRequest, now time.Time) (*domain.DealEdit, error) {
	core, err := validateCore(coreFields{
		ProductName:            req.ProductName,
		ProductWebsite:         req.ProductWebsite,
		Title:                  req.Title,
		Description:            req.Description,
		ShortDescription:       req.ShortDescription,
		Category:               req.Category,
		OriginalPrice:          req.OriginalPrice,
		DealPrice:              req.DealPrice,
		ExpiresAt:              req.ExpiresAt,
		Tags:                   req.Tags,
		IconURL:                req.IconURL,
		RedemptionInstructions: req.RedemptionInstructions,
	}, now)
	if err != nil {
		return nil, err
	}

	return &domain.DealEdit{
		Title:                  core.Title,
		Description:            core.Description,
		ShortDescription:       core.ShortDescription,
		Category:               core.Category,
		Tags:                   core.Tags,
		ProductName:            core.ProductName,
		ProductWebsite:         core.ProductWebsite,
		IconURL:                core.IconURL,
		RedemptionInstructions: core.RedemptionInstructions,
		OriginalPriceCents:     core.OriginalPriceCents,
		DealPriceCents:         core.DealPriceCents,
		DiscountPercentage:     core.DiscountPercentage,
		ExpiresAt:              core.ExpiresAt,
	}, nil
}

type coreFields struct {
	ProductName            *string
	ProductWebsite         *string
	Title                  *string
	Description            *string
	ShortDescription       *string
	Category               *string
	OriginalPrice          *json.Number
	DealPrice              *json.Number
	ExpiresAt              *string
	Tags                   []any
	IconURL                *string
	RedemptionInstructions *string
}

type coreResult struct {
	ProductName            string
	ProductWebsite         string
	Title                  string
	Description            string
	ShortDescription       string
	Category               string
	Tags                   []string
	IconURL                string
	RedemptionInstructions string
	OriginalPriceCents     int64
	DealPriceCents         int64
	DiscountPercentage     int
	ExpiresAt              time.Time
}

func validateCore(f coreFields, now time.Time) (*coreResult, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"productName", f.ProductName != nil},
		{"productWebsite", f.ProductWebsite != nil},
		{"title", f.Title != nil},
		{"description", f.Description != nil},
		{"shortDescription", f.ShortDescription != nil},
		{"category", f.Category != nil},
		{"originalPrice", f.OriginalPrice != nil},
		{"dealPrice", f.DealPrice != nil},
		{"expiresAt", f.ExpiresAt != nil},
	}
	for _, r := range required {
		if !r.present {
			return nil, domain.NewValidationError(domain.CodeMissingField, r.name, "field is required")
		}
	}

	out := &coreResult{}

	texts := []struct {
		name string
		in   string
		max  int
		dst  *string
	}{
		{"productName", *f.ProductName, maxProductName, &out.ProductName},
		{"title", *f.Title, maxTitle, &out.Title},
		{"description", *f.Description, maxDescription, &out.Description},
		{"shortDescription", *f.ShortDescription, maxShortDescription, &out.ShortDescription},
	}
	for _, t := range texts {
		clean := Sanitize(t.in, t.max)
		if clean == "" {
			return nil, domain.NewValidationError(domain.CodeEmptyRequiredField, t.name, "field is empty after sanitization")
		}
		*t.dst = clean
	}

	if f.RedemptionInstructions != nil {
		out.RedemptionInstructions = Sanitize(*f.RedemptionInstructions, maxRedemptionInstructions)
	}

	website, err := validateURL("productWebsite", *f.ProductWebsite)
	if err != nil {
		return nil, err
	}
	out.ProductWebsite = website

	if f.IconURL != nil && strings.TrimSpace(*f.IconURL) != "" {
		icon, err := validateURL("iconUrl", *f.IconURL)
		if err != nil {
			return nil, err
		}
		out.IconURL = icon
	}

	origCents, err := validatePrice("originalPrice", *f.OriginalPrice)
	if err != nil {
		return nil, err
	}
	dealCents, err := validatePrice("dealPrice", *f.DealPrice)
	if err != nil {
		return nil, err
	}
	if dealCents >= origCents {
		return nil, domain.NewValidationError(domain.CodePriceOrderingViolation, "dealPrice", "deal price must be less than original price")
	}
	pct := int(math.Round(float64(origCents-dealCents) / float64(origCents) * 100))
	if pct < minDiscountPct {
		return nil, domain.NewValidationError(domain.CodeDiscountTooSmall, "dealPrice", "discount must be at least 10%")
	}
	out.OriginalPriceCents = origCents
	out.DealPriceCents = dealCents
	out.DiscountPercentage = pct

	expires, err := time.Parse(time.RFC3339, *f.ExpiresAt)
	if err != nil {
		return nil, domain.NewValidationError(domain.CodeInvalidExpiration, "expiresAt", "must be an RFC3339 timestamp")
	}
	if !expires.After(now) {
		return nil, domain.NewValidationError(domain.CodeInvalidExpiration, "expiresAt", "must be in the future")
	}
	if !expires.Before(now.Add(maxExpiryWindow)) {
		return nil, domain.NewValidationError(domain.CodeInvalidExpiration, "expiresAt", "must be within one year")
	}
	out.ExpiresAt = expires

	out.Tags = sanitizeTags(f.Tags)

	if !domain.ValidCategory(*f.Category) {
		return nil, domain.NewValidationError(domain.CodeInvalidCategory, "category",
			"must be one of: "+strings.Join(domain.Categories, ", "))
	}
	out.Category = *f.Category

	return out, nil
}

// sanitizeTags keeps only string entries, sanitizes each, drops empties, and
// caps the list at the first ten. Overflow is not an error.
func sanitizeTags(raw []any) []string {
	var tags []string
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		clean := Sanitize(s, maxTag)
		if clean == "" {
			continue
		}
		tags = append(tags, clean)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func validateURL(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", domain.NewValidationError(domain.CodeInvalidURL, field, "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domain.NewValidationError(domain.CodeInvalidURL, field, "must use http or https")
	}
	host := u.Hostname()
	if host == "" {
		return "", domain.NewValidationError(domain.CodeInvalidURL, field, "must have a host")
	}
	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		return "", domain.NewValidationError(domain.CodeInvalidURL, field, "host is not allowed")
	}
	return trimmed, nil
}

func validatePrice(field string, n json.Number) (int64, error) {
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.NewValidationError(domain.CodeInvalidPrice, field, "must be a finite number")
	}
	if v < 0 || v > maxPrice {
		return 0, domain.NewValidationError(domain.CodeInvalidPrice, field, "must be between 0 and 10000")
	}
	return int64(math.Round(v * 100)), nil
}

// validateCodes normalizes the polymorphic discount-code payload and returns
// the pool plus the deal's total code count.
func validateCodes(payload *DiscountCodes, totalCodes *json.Number) (*domain.CodePool, int, error) {
	invalid := func(msg string) error {
		return domain.NewValidationError(domain.CodeInvalidDiscountCodes, "discountCodes", msg)
	}

	if payload == nil {
		return nil, 0, invalid("discount codes are required")
	}

	switch domain.CodeKind(payload.Type) {
	case domain.CodeKindUniversal:
		if !codePattern.MatchString(payload.Code) {
			return nil, 0, invalid("code must be 3-50 characters of letters, digits, underscore, or hyphen")
		}
		total := defaultUniversalTotal
		if totalCodes != nil {
			if n, err := totalCodes.Int64(); err == nil && n > 0 {
				total = int(n)
			}
		}
		return &domain.CodePool{
			Kind:  domain.CodeKindUniversal,
			Codes: []string{strings.ToUpper(payload.Code)},
		}, total, nil

	case domain.CodeKindUnique:
		seen := make(map[string]struct{}, len(payload.Codes))
		var codes []string
		for _, c := range payload.Codes {
			if !codePattern.MatchString(c) {
				return nil, 0, invalid("every code must be 3-50 characters of letters, digits, underscore, or hyphen")
			}
			upper := strings.ToUpper(c)
			if _, dup := seen[upper]; dup {
				continue
			}
			seen[upper] = struct{}{}
			codes = append(codes, upper)
		}
		if len(codes) == 0 || len(codes) > maxUniqueCodes {
			return nil, 0, invalid("between 1 and 10000 codes are required")
		}
		return &domain.CodePool{Kind: domain.CodeKindUnique, Codes: codes}, len(codes), nil
	}

	return nil, 0, invalid(`type must be "universal" or "unique"`)
}
