package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names published by the admission and finance features.
const (
	EventApplicationStatusChanged = "application.status_changed"
	EventPaymentSucceeded         = "payment.succeeded"
	EventPaymentFailed            = "payment.failed"
)

type Event struct {
	Name          string                 `json:"name"`
	ApplicationID uuid.UUID              `json:"application_id"`
	UserID        uuid.UUID              `json:"user_id"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// Notifier delivers a single event to the outside world (mail, push, ...).
// Delivery failures never propagate back into the transaction that emitted
// the event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier is the default sink; real channels are wired in deployment.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	log.Printf("[NOTIFY] %s application=%s user=%s", ev.Name, ev.ApplicationID, ev.UserID)
	return nil
}

// Outbox decouples notification delivery from state changes. Publish never
// blocks and never fails the caller; a single consumer goroutine drains the
// channel into the Notifier.
type Outbox struct {
	mu       sync.RWMutex
	ch       chan Event
	closed   bool
	notifier Notifier
	wg       sync.WaitGroup
}

func NewOutbox(n Notifier, buffer int) *Outbox {
	if buffer <= 0 {
		buffer = 256
	}
	o := &Outbox{
		ch:       make(chan Event, buffer),
		notifier: n,
	}
	o.wg.Add(1)
	go o.consume()
	return o
}

func (o *Outbox) consume() {
	defer o.wg.Done()
	for ev := range o.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := o.notifier.Notify(ctx, ev); err != nil {
			log.Printf("[OUTBOX] deliver %s failed: %v", ev.Name, err)
		}
		cancel()
	}
}

// Publish enqueues an event. A full buffer or a closed outbox drops the
// event with a log line; notifications are best-effort side effects.
func (o *Outbox) Publish(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		log.Printf("[OUTBOX] dropped %s: outbox closed", ev.Name)
		return
	}
	select {
	case o.ch <- ev:
	default:
		log.Printf("[OUTBOX] dropped %s: buffer full", ev.Name)
	}
}

// Close stops accepting events and waits for the consumer to drain.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.ch)
	o.mu.Unlock()
	o.wg.Wait()
}
