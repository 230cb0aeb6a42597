package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// DefaultTicketPageSize bounds how many recent tickets are inspected.
const DefaultTicketPageSize = 30

// TicketLocator lists the tickets of a customer for threading.
type TicketLocator struct {
	backend  ticketing.Backend
	pageSize int
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// LocatorDependencies bundles collaborators for the ticket locator.
type LocatorDependencies struct {
	Backend  ticketing.Backend
	PageSize int
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewTicketLocator constructs the locator.
func NewTicketLocator(deps LocatorDependencies) *TicketLocator {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = DefaultTicketPageSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketLocator{
		backend:  deps.Backend,
		pageSize: pageSize,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// ListTickets returns the most recent tickets of identity. A missing
// external id or a backend failure yields an empty result.
func (l *TicketLocator) ListTickets(ctx context.Context, identity domain.CustomerIdentity) []domain.Ticket {
	if !identity.HasExternalID() {
		return nil
	}
	tickets, err := l.backend.ListTickets(ctx, identity.ExternalID, l.pageSize)
	if err != nil {
		l.metrics.RecordDegradation("ticket_lookup")
		l.logger.Warn("ticket lookup failed, treating as no tickets",
			zap.String("code", apperrors.CodeBackendUnavailable),
			zap.String("customer_id", identity.ExternalID),
			zap.Error(err))
		return nil
	}
	return tickets
}
