package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/indiesaasdeals/deals-api/internal/domain"
)

// codeBatchSize caps one CopyFrom batch of deal codes.
const codeBatchSize = 1000

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const dealColumns = `id, founder_id, title, slug, description, short_description, category, tags,
	product_name, product_website, icon_url, redemption_instructions,
	original_price_cents, deal_price_cents, discount_percentage, total_codes,
	pricing_tier, featured, view_count, click_count, status, rejection_reason,
	expires_at, created_at, updated_at`

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var d domain.Deal
	var status string
	err := row.Scan(
		&d.ID, &d.FounderID, &d.Title, &d.Slug, &d.Description, &d.ShortDescription,
		&d.Category, &d.Tags, &d.ProductName, &d.ProductWebsite, &d.IconURL,
		&d.RedemptionInstructions, &d.OriginalPriceCents, &d.DealPriceCents,
		&d.DiscountPercentage, &d.TotalCodes, &d.PricingTier, &d.Featured,
		&d.ViewCount, &d.ClickCount, &status, &d.RejectionReason,
		&d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt,
	)
	d.Status = domain.DealStatus(status)
	return d, err
}

type CreateDealParams struct {
	FounderID  string
	Slug       string
	Submission *domain.DealSubmission
}

func (q *Queries) CreateDeal(ctx context.Context, arg CreateDealParams) (domain.Deal, error) {
	sub := arg.Submission
	row := q.db.QueryRow(ctx, `
		INSERT INTO deals (
			id, founder_id, title, slug, description, short_description, category, tags,
			product_name, product_website, icon_url, redemption_instructions,
			original_price_cents, deal_price_cents, discount_percentage, total_codes,
			status, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING `+dealColumns,
		uuid.NewString(), arg.FounderID, sub.Title, arg.Slug, sub.Description,
		sub.ShortDescription, sub.Category, sub.Tags, sub.ProductName,
		sub.ProductWebsite, sub.IconURL, sub.RedemptionInstructions,
		sub.OriginalPriceCents, sub.DealPriceCents, sub.DiscountPercentage,
		sub.TotalCodes, string(domain.StatusPendingReview), sub.ExpiresAt,
	)
	return scanDeal(row)
}

// InsertCodes bulk-inserts the code pool for a deal in batches. Run inside
// the submission transaction so a failed batch rolls the whole deal back.
func (q *Queries) InsertCodes(ctx context.Context, dealID string, universal bool, codes []string) error {
	for start := 0; start < len(codes); start += codeBatchSize {
		end := min(start+codeBatchSize, len(codes))
		batch := codes[start:end]
		rows := make([][]any, len(batch))
		for i, code := range batch {
			rows[i] = []any{uuid.NewString(), dealID, code, universal, false}
		}
		_, err := q.db.CopyFrom(ctx,
			pgx.Identifier{"deal_codes"},
			[]string{"id", "deal_id", "code", "is_universal", "is_claimed"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert codes batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (q *Queries) GetDealByID(ctx context.Context, id string) (domain.Deal, error) {
	row := q.db.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	return scanDeal(row)
}

func (q *Queries) GetDealBySlug(ctx context.Context, slug string) (domain.Deal, error) {
	row := q.db.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE slug = $1`, slug)
	return scanDeal(row)
}

func (q *Queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM deals WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

type UpdateDealParams struct {
	ID     string
	Slug   string
	Status domain.DealStatus
	Edit   *domain.DealEdit
}

func (q *Queries) UpdateDeal(ctx context.Context, arg UpdateDealParams) (domain.Deal, error) {
	e := arg.Edit
	row := q.db.QueryRow(ctx, `
		UPDATE deals SET
			title = $2, slug = $3, description = $4, short_description = $5,
			category = $6, tags = $7, product_name = $8, product_website = $9,
			icon_url = $10, redemption_instructions = $11,
			original_price_cents = $12, deal_price_cents = $13,
			discount_percentage = $14, expires_at = $15,
			status = $16, rejection_reason = '', updated_at = now()
		WHERE id = $1
		RETURNING `+dealColumns,
		arg.ID, e.Title, arg.Slug, e.Description, e.ShortDescription, e.Category,
		e.Tags, e.ProductName, e.ProductWebsite, e.IconURL, e.RedemptionInstructions,
		e.OriginalPriceCents, e.DealPriceCents, e.DiscountPercentage, e.ExpiresAt,
		string(arg.Status),
	)
	return scanDeal(row)
}

func (q *Queries) UpdateDealStatus(ctx context.Context, id string, status domain.DealStatus, reason string) (domain.Deal, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE deals SET status = $2, rejection_reason = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+dealColumns,
		id, string(status), reason,
	)
	return scanDeal(row)
}

func (q *Queries) ListLiveDeals(ctx context.Context, category string) ([]domain.Deal, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+dealColumns+` FROM deals
		WHERE status = 'live' AND expires_at > now()
			AND ($1 = '' OR category = $1)
		ORDER BY featured DESC, created_at DESC`,
		category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// ClaimUniqueCode marks one unclaimed code as taken by the user and returns
// it. The inner select uses FOR UPDATE SKIP LOCKED so two concurrent
// claimants can never be handed the same row; pgx.ErrNoRows means the pool
// is exhausted.
func (q *Queries) ClaimUniqueCode(ctx context.Context, dealID, userID string) (string, error) {
	var code string
	err := q.db.QueryRow(ctx, `
		UPDATE deal_codes SET is_claimed = TRUE, user_id = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM deal_codes
			WHERE deal_id = $1 AND NOT is_universal AND NOT is_claimed
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING code`,
		dealID, userID,
	).Scan(&code)
	return code, err
}

func (q *Queries) GetUniversalCode(ctx context.Context, dealID string) (string, error) {
	var code string
	err := q.db.QueryRow(ctx,
		`SELECT code FROM deal_codes WHERE deal_id = $1 AND is_universal LIMIT 1`,
		dealID,
	).Scan(&code)
	return code, err
}

func (q *Queries) GetUserClaimedCode(ctx context.Context, dealID, userID string) (string, error) {
	var code string
	err := q.db.QueryRow(ctx,
		`SELECT code FROM deal_codes WHERE deal_id = $1 AND user_id = $2 AND is_claimed LIMIT 1`,
		dealID, userID,
	).Scan(&code)
	return code, err
}

func (q *Queries) IncrementViews(ctx context.Context, slug string) error {
	_, err := q.db.Exec(ctx, `UPDATE deals SET view_count = view_count + 1 WHERE slug = $1`, slug)
	return err
}

func (q *Queries) IncrementClicks(ctx context.Context, slug string) error {
	_, err := q.db.Exec(ctx, `UPDATE deals SET click_count = click_count + 1 WHERE slug = $1`, slug)
	return err
}

// ExpireDueDeals flips live deals whose expiry has passed; invoked lazily
// from reads rather than by a background job.
func (q *Queries) ExpireDueDeals(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE deals SET status = 'expired', updated_at = now() WHERE status = 'live' AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
