package kafka

import (
	"context"

	"github.com/indiesaasdeals/deals-api/internal/domain"
	"github.com/indiesaasdeals/deals-api/internal/usecase"
)

// NoopPublisher stands in when event publishing is disabled.
type NoopPublisher struct{}

func NewNoopPublisher() usecase.EventPublisher {
	return NoopPublisher{}
}

func (NoopPublisher) DealCreated(context.Context, *domain.Deal)             {}
func (NoopPublisher) DealUpdated(context.Context, *domain.Deal)             {}
func (NoopPublisher) DealStatusChanged(context.Context, *domain.Deal)       {}
func (NoopPublisher) DealClaimed(context.Context, *domain.Deal, string)     {}
