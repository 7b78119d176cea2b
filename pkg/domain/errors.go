package domain

import "errors"

// ErrSessionNotFound is returned when a conversation ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCompletion wraps failures of the external completion function.
// A turn that hits it fails as a whole.
var ErrCompletion = errors.New("completion failed")

// ErrPromptNotFound is returned when no prompt configuration exists for a handler.
var ErrPromptNotFound = errors.New("prompt configuration not found")
