package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/snapgram/internal/logging"
)

// LogNotifier writes every toast to a structured logger.
type LogNotifier struct {
	Logger logging.Logger
}

func (l LogNotifier) Notify(ctx context.Context, t Toast) {
	if t.Type == Negative {
		l.Logger.Warn(ctx, "toast", "type", string(t.Type), "message", t.Message)
		return
	}
	l.Logger.Info(ctx, "toast", "type", string(t.Type), "message", t.Message)
}

// Printer writes toasts to a terminal as "[positive] message".
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Notify(_ context.Context, t Toast) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "[%s] %s\n", t.Type, t.Message)
}
