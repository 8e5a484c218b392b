package domain

import "time"

type DealStatus string

const (
	StatusDraft         DealStatus = "draft"
	StatusPendingReview DealStatus = "pending_review"
	StatusLive          DealStatus = "live"
	StatusRejected      DealStatus = "rejected"
	StatusExpired       DealStatus = "expired"
	StatusPaused        DealStatus = "paused"
)

// Editable reports whether a founder may still modify a deal in this status.
// Once a deal goes live only administrators move it.
func (s DealStatus) Editable() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusRejected:
		return true
	}
	return false
}

// Categories is the fixed set a deal must belong to.
var Categories = []string{
	"Developer Tools",
	"Analytics",
	"Marketing",
	"Design",
	"Productivity",
	"AI & Machine Learning",
	"Finance",
	"Customer Support",
	"Sales & CRM",
	"E-commerce",
	"Communication",
	"Security",
	"HR & Team",
	"Education",
	"No-Code",
}

func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

type Deal struct {
	ID                     string
	FounderID              string
	Title                  string
	Slug                   string
	Description            string
	ShortDescription       string
	Category               string
	Tags                   []string
	ProductName            string
	ProductWebsite         string
	IconURL                string
	RedemptionInstructions string
	OriginalPriceCents     int64
	DealPriceCents         int64
	DiscountPercentage     int
	TotalCodes             int
	PricingTier            string
	Featured               bool
	ViewCount              int64
	ClickCount             int64
	Status                 DealStatus
	RejectionReason        string
	ExpiresAt              time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type DealCode struct {
	ID          string
	DealID      string
	Code        string
	IsUniversal bool
	IsClaimed   bool
	UserID      string
	ClaimedAt   *time.Time
	CreatedAt   time.Time
}

// CodeKind distinguishes the two shapes a founder can submit codes in.
type CodeKind string

const (
	CodeKindUniversal CodeKind = "universal"
	CodeKindUnique    CodeKind = "unique"
)

// CodePool is the normalized result of validating a discount-code payload.
// Universal pools carry exactly one shared code; unique pools carry the
// deduplicated batch.
type CodePool struct {
	Kind  CodeKind
	Codes []string
}

// DealSubmission is a fully validated, sanitized deal ready for persistence.
type DealSubmission struct {
	Title                  string
	Description            string
	ShortDescription       string
	Category               string
	Tags                   []string
	ProductName            string
	ProductWebsite         string
	IconURL                string
	RedemptionInstructions string
	OriginalPriceCents     int64
	DealPriceCents         int64
	DiscountPercentage     int
	TotalCodes             int
	ExpiresAt              time.Time
	Codes                  CodePool
}

// DealEdit is the validated field set for an update. Codes are immutable
// after submission, so there is no pool here.
type DealEdit struct {
	Title                  string
	Description            string
	ShortDescription       string
	Category               string
	Tags                   []string
	ProductName            string
	ProductWebsite         string
	IconURL                string
	RedemptionInstructions string
	OriginalPriceCents     int64
	DealPriceCents         int64
	DiscountPercentage     int
	ExpiresAt              time.Time
}
