package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

func TestMemorySubscriptionRepository(t *testing.T) {
	repo := NewMemorySubscriptionRepository()
	ctx := context.Background()
	phone := testPhone

	_, err := repo.Get(ctx, phone)
	require.ErrorIs(t, err, ErrNotFound)

	sub := &domain.Subscription{Phone: phone, Status: domain.SubscriptionOptedOut}
	require.NoError(t, repo.Upsert(ctx, sub))
	assert.False(t, sub.UpdatedAt.IsZero())

	got, err := repo.Get(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionOptedOut, got.Status)

	require.NoError(t, repo.Upsert(ctx, &domain.Subscription{Phone: phone, Status: domain.SubscriptionOptedIn}))
	got, err = repo.Get(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionOptedIn, got.Status)
}

func TestMemorySubscriptionRepositoryRejectsUnknownStatus(t *testing.T) {
	repo := NewMemorySubscriptionRepository()
	err := repo.Upsert(context.Background(), &domain.Subscription{Phone: testPhone, Status: "PAUSED"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
