package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

// ErrNotFound is returned when no subscription row exists for a phone.
var ErrNotFound = errors.New("subscription not found")

// ErrInvalidStatus is returned for statuses outside the opt-in/opt-out set.
var ErrInvalidStatus = errors.New("invalid subscription status")

const checkViolation = "23514"

// Querier is the part of a pgx pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubscriptionRepository manages the SMS opt-in/opt-out list.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.Subscription) error
	Get(ctx context.Context, phone domain.PhoneNumber) (*domain.Subscription, error)
}

type subscriptionRepository struct {
	db Querier
}

// NewSubscriptionRepository builds the Postgres repository over a pgx pool.
func NewSubscriptionRepository(db Querier) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        INSERT INTO sms_subscriptions (phone, status, updated_at)
        VALUES ($1,$2,NOW())
        ON CONFLICT (phone) DO UPDATE SET status=EXCLUDED.status, updated_at=NOW()
        RETURNING updated_at`
	if !sub.Status.Valid() {
		return ErrInvalidStatus
	}
	err := r.db.QueryRow(ctx, query, sub.Phone.String(), string(sub.Status)).Scan(&sub.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		return ErrInvalidStatus
	}
	return err
}

func (r *subscriptionRepository) Get(ctx context.Context, phone domain.PhoneNumber) (*domain.Subscription, error) {
	const query = `
        SELECT phone, status, updated_at
        FROM sms_subscriptions WHERE phone=$1`
	var (
		sub    domain.Subscription
		raw    string
		status string
	)
	if err := r.db.QueryRow(ctx, query, phone.String()).Scan(&raw, &status, &sub.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sub.Phone = domain.PhoneNumber(raw)
	sub.Status = domain.SubscriptionStatus(status)
	return &sub, nil
}

type memorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[domain.PhoneNumber]domain.Subscription
	now  func() time.Time
}

// NewMemorySubscriptionRepository keeps the list in process memory. It is
// used when no database is configured.
func NewMemorySubscriptionRepository() SubscriptionRepository {
	return &memorySubscriptionRepository{
		subs: make(map[domain.PhoneNumber]domain.Subscription),
		now:  time.Now,
	}
}

func (r *memorySubscriptionRepository) Upsert(_ context.Context, sub *domain.Subscription) error {
	if !sub.Status.Valid() {
		return ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.UpdatedAt = r.now().UTC()
	r.subs[sub.Phone] = *sub
	return nil
}

func (r *memorySubscriptionRepository) Get(_ context.Context, phone domain.PhoneNumber) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}
