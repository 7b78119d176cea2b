// Package middleware decorates a ports.StateStore with at-rest protections:
// AES-GCM encryption with key rotation and masking of personal data in learner text.
package middleware

import "github.com/aretw0/logicloom/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares so the first one listed sees calls first.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
