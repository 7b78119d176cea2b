package turnlog

import (
	"context"
	"errors"

	"github.com/aretw0/logicloom/pkg/ports"
)

var (
	// ErrQueueFull is reported when an Async logger drops an entry.
	ErrQueueFull = errors.New("turn log queue full")
	// ErrClosed is reported for entries logged after Close.
	ErrClosed = errors.New("turn log closed")
)

// Nop discards every entry.
type Nop struct{}

// LogTurn does nothing.
func (Nop) LogTurn(context.Context, ports.TurnLogEntry) error { return nil }
