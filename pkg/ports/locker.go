package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes turns of one conversation when several API
// replicas share a store. Without it two concurrent turns may both load the
// same state and the later Save wins.
type DistributedLocker interface {
	// Lock blocks until the conversation key is held or ctx ends.
	// The lock expires after ttl if the holder never calls the returned UnlockFunc.
	Lock(ctx context.Context, conversationID string, ttl time.Duration) (UnlockFunc, error)
}
