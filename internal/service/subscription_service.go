package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/repository"
)

// SubscriptionService records SMS opt-ins and opt-outs.
type SubscriptionService struct {
	repo       repository.SubscriptionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(repo repository.SubscriptionRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{repo: repo, dispatcher: dispatcher, logger: logger}
}

// OptOut marks phone as unsubscribed from SMS.
func (s *SubscriptionService) OptOut(ctx context.Context, phone domain.PhoneNumber) error {
	return s.set(ctx, phone, domain.SubscriptionOptedOut)
}

// OptIn marks phone as subscribed again.
func (s *SubscriptionService) OptIn(ctx context.Context, phone domain.PhoneNumber) error {
	return s.set(ctx, phone, domain.SubscriptionOptedIn)
}

// IsOptedOut reports whether phone asked not to receive SMS. Numbers
// without a record are subscribed.
func (s *SubscriptionService) IsOptedOut(ctx context.Context, phone domain.PhoneNumber) (bool, error) {
	sub, err := s.repo.Get(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.Status == domain.SubscriptionOptedOut, nil
}

func (s *SubscriptionService) set(ctx context.Context, phone domain.PhoneNumber, status domain.SubscriptionStatus) error {
	sub := &domain.Subscription{Phone: phone, Status: status}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return err
	}
	s.logger.Info("subscription changed",
		zap.String("phone", phone.String()),
		zap.String("status", string(status)))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventSubscriptionChanged, "", phone,
		events.SubscriptionChangedPayload{Status: status}))
	return nil
}
