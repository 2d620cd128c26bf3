package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"libraryapi/repository/telegram"
)

// Notifier accepts a message for best-effort asynchronous delivery.
type Notifier interface {
	Notify(text string)
}

const sendTimeout = 10 * time.Second

// Dispatcher is a one-way outbound queue drained by a single worker.
// Notify never blocks the caller; delivery failures are only logged.
type Dispatcher struct {
	sender telegram.Sender
	log    *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan string
	done   chan struct{}
}

func NewDispatcher(sender telegram.Sender, log *slog.Logger, size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	d := &Dispatcher{
		sender: sender,
		log:    log,
		queue:  make(chan string, size),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Notify(text string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped, dispatcher closed")
		return
	}
	select {
	case d.queue <- text:
	default:
		d.log.Warn("notification dropped, queue full", "queue_size", cap(d.queue))
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for text := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.sender.Send(ctx, text); err != nil {
			d.log.Error("notification failed", "err", err)
		}
		cancel()
	}
}
