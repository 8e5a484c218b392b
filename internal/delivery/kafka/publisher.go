package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/indiesaasdeals/deals-api/internal/domain"
	"github.com/indiesaasdeals/deals-api/internal/usecase"
)

// Publisher emits deal lifecycle events. Produces are asynchronous and
// best-effort: a broker outage must never fail a founder's request.
type Publisher struct {
	client *kgo.Client
	logger zerolog.Logger
}

func NewPublisher(client *kgo.Client, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

func (p *Publisher) DealCreated(ctx context.Context, deal *domain.Deal) {
	p.publish(ctx, TopicDealCreated, deal, "")
}

func (p *Publisher) DealUpdated(ctx context.Context, deal *domain.Deal) {
	p.publish(ctx, TopicDealUpdated, deal, "")
}

func (p *Publisher) DealStatusChanged(ctx context.Context, deal *domain.Deal) {
	p.publish(ctx, TopicDealStatus, deal, "")
}

func (p *Publisher) DealClaimed(ctx context.Context, deal *domain.Deal, userID string) {
	p.publish(ctx, TopicDealClaimed, deal, userID)
}

func (p *Publisher) publish(ctx context.Context, topic string, deal *domain.Deal, userID string) {
	event := DealEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		DealID:        deal.ID,
		Slug:          deal.Slug,
		Status:        string(deal.Status),
		UserID:        userID,
		OccurredAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(deal.ID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error().Err(err).Str("topic", topic).Str("deal_id", deal.ID).Msg("failed to publish event")
		}
	})
}

var _ usecase.EventPublisher = (*Publisher)(nil)
