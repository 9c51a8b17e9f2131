// Package notify carries transient user-facing notifications ("toasts")
// from the authentication store to whatever surface shows them: a log, a
// terminal, or browsers connected over a websocket.
package notify

import (
	"context"
	"time"
)

type Type string

const (
	Positive Type = "positive"
	Negative Type = "negative"
)

const (
	DefaultPosition = "bottom"
	DefaultTimeout  = 3 * time.Second
)

// Toast is a short notification. Group=false means identical toasts are
// shown separately rather than collapsed.
type Toast struct {
	Type     Type
	Message  string
	Position string
	Timeout  time.Duration
	Group    bool
}

// NewToast returns a toast with the default position and timeout.
func NewToast(t Type, message string) Toast {
	return Toast{
		Type:     t,
		Message:  message,
		Position: DefaultPosition,
		Timeout:  DefaultTimeout,
	}
}

type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, t Toast)

func (f Func) Notify(ctx context.Context, t Toast) { f(ctx, t) }

// Multi fans a toast out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, t Toast) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, t)
		}
	}
}
