// Package notify delivers client notifications off the request path.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notifier sends a message to a client. It never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, clientID, message string)
}

// Message is one notification handed to a Delivery.
type Message struct {
	ClientID string
	Text     string
	SentAt   time.Time
}

// Delivery is the transport behind a Dispatcher.
type Delivery interface {
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher runs each delivery in its own goroutine and logs failures.
type Dispatcher struct {
	delivery Delivery
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(delivery Delivery, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{delivery: delivery, logger: logger, timeout: timeout}
}

func (d *Dispatcher) Notify(ctx context.Context, clientID, message string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "notification dropped after shutdown", "client_id", clientID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	// Keep trace values but outlive the request.
	base := context.WithoutCancel(ctx)
	msg := Message{ClientID: clientID, Text: message, SentAt: time.Now()}

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.ErrorContext(base, "notification delivery panicked", "client_id", clientID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		if err := d.delivery.Deliver(ctx, msg); err != nil {
			d.logger.ErrorContext(ctx, "notification delivery failed", "client_id", clientID, "err", err)
		}
	}()
}

// Close stops accepting notifications and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogDelivery writes notifications to the log.
type LogDelivery struct {
	logger *slog.Logger
}

func NewLogDelivery(logger *slog.Logger) *LogDelivery {
	return &LogDelivery{logger: logger}
}

func (l *LogDelivery) Deliver(ctx context.Context, msg Message) error {
	l.logger.InfoContext(ctx, "notification", "client_id", msg.ClientID, "message", msg.Text)
	return nil
}
