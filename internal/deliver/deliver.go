// Package deliver abstracts the outbound message channel. The real SMTP
// transport lives outside the core; handlers and the reminder scheduler only
// see this interface.
package deliver

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Deliverer sends a message to an address. Failures propagate as errors the
// core maps to retry/finalize decisions; nothing here retries on its own.
type Deliverer interface {
	Deliver(ctx context.Context, address, subject, body string) error
}

// Func adapts a plain function to the Deliverer interface.
type Func func(ctx context.Context, address, subject, body string) error

// Deliver implements Deliverer.
func (f Func) Deliver(ctx context.Context, address, subject, body string) error {
	return f(ctx, address, subject, body)
}

// Console writes messages to a writer instead of sending them. Used in
// development and by the CLI when no transport is configured.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console deliverer writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Deliver implements Deliverer.
func (c *Console) Deliver(ctx context.Context, address, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "To: %s\nSubject: %s\n\n%s\n\n", address, subject, body)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
