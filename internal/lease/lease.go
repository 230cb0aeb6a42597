package lease

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps failures of the lease store itself, as opposed
// to the caller giving up while waiting.
var ErrStoreUnavailable = errors.New("lease store unavailable")

// Locker hands out short-lived exclusive leases keyed by string.
type Locker interface {
	// Acquire blocks until the lease for key is held or ctx is done. The
	// lease expires after ttl even if release is never called. release is
	// idempotent.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// ThreadKey is the lease key serializing work for one phone number.
func ThreadKey(phone string) string {
	return "sms-thread:" + phone
}
