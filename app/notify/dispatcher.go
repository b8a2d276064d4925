package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/landing-comb/app/content"
)

const (
	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
	DefaultPingTopic  = "ping"
	DefaultPingDelay  = 50 * time.Second
)

type Options struct {
	Attempts   int
	RetryDelay time.Duration
	PingTopic  string
	PingDelay  time.Duration
	// SendTimeout bounds one ping delivery including retries.
	SendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.PingTopic == "" {
		o.PingTopic = DefaultPingTopic
	}
	if o.PingDelay < 0 {
		o.PingDelay = 0
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = time.Minute
	}
	return o
}

type Stats struct {
	Sent         int64 `json:"sent"`
	Failed       int64 `json:"failed"`
	PingsSent    int64 `json:"pings_sent"`
	PingsFailed  int64 `json:"pings_failed"`
	PingsPending int   `json:"pings_pending"`
}

// Dispatcher sends change notifications with bounded retry and schedules delayed silent pings.
type Dispatcher struct {
	sender Sender
	opts   Options

	mu      sync.Mutex
	pending map[uint64]*time.Timer
	nextID  uint64
	stopped bool
	wg      sync.WaitGroup

	sent        atomic.Int64
	failed      atomic.Int64
	pingsSent   atomic.Int64
	pingsFailed atomic.Int64
}

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		opts:    opts.withDefaults(),
		pending: make(map[uint64]*time.Timer),
	}
}

// NotifyChange sends the new/updated notification for post to one topic.
func (d *Dispatcher) NotifyChange(ctx context.Context, post content.Post, topic string, categories []string, isNew bool) error {
	msg := NewChangeMessage(post, topic, categories, isNew)
	if err := d.sendWithRetry(ctx, msg); err != nil {
		d.failed.Add(1)
		return fmt.Errorf("notify topic %s: %w", topic, err)
	}

	d.sent.Add(1)
	slog.Info("Notification sent",
		"type", changeType(isNew),
		"slug", post.Slug,
		"topic", topic,
		"modified", post.Modified,
		"categories", categories)
	return nil
}

// NotifyTopics notifies every topic in order. A failed topic is logged and does not stop the rest.
// It returns the number of topics that failed.
func (d *Dispatcher) NotifyTopics(ctx context.Context, post content.Post, topics []string, categories []string, isNew bool) int {
	failures := 0
	for _, topic := range topics {
		if err := d.NotifyChange(ctx, post, topic, categories, isNew); err != nil {
			slog.Error("Failed to notify topic", "topic", topic, "slug", post.Slug, "error", err)
			failures++
		}
	}
	return failures
}

// SchedulePing sends a silent ping for post after the configured delay, detached from the caller.
// The returned function cancels the ping if it has not fired yet and reports whether it did so.
func (d *Dispatcher) SchedulePing(post content.Post, categories []string) (cancel func() bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return func() bool { return false }
	}

	id := d.nextID
	d.nextID++
	msg := NewPingMessage(post, d.opts.PingTopic, categories)

	d.wg.Add(1)
	d.pending[id] = time.AfterFunc(d.opts.PingDelay, func() {
		defer d.wg.Done()
		if !d.take(id) {
			return
		}
		d.sendPing(post, msg)
	})

	return func() bool {
		d.mu.Lock()
		timer, ok := d.pending[id]
		if ok {
			delete(d.pending, id)
		}
		d.mu.Unlock()

		if ok && timer.Stop() {
			d.wg.Done()
			return true
		}
		return false
	}
}

// Stop cancels every ping that has not fired and waits for in-flight ones to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	timers := d.pending
	d.pending = make(map[uint64]*time.Timer)
	d.mu.Unlock()

	for _, timer := range timers {
		if timer.Stop() {
			d.wg.Done()
		}
	}
	d.wg.Wait()
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	pending := len(d.pending)
	d.mu.Unlock()

	return Stats{
		Sent:         d.sent.Load(),
		Failed:       d.failed.Load(),
		PingsSent:    d.pingsSent.Load(),
		PingsFailed:  d.pingsFailed.Load(),
		PingsPending: pending,
	}
}

// take claims a fired ping so that a racing cancel cannot also count it.
func (d *Dispatcher) take(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pending[id]; !ok {
		return false
	}
	delete(d.pending, id)
	return true
}

func (d *Dispatcher) sendPing(post content.Post, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()

	if err := d.sendWithRetry(ctx, msg); err != nil {
		d.pingsFailed.Add(1)
		slog.Error("Failed ping after delay", "slug", post.Slug, "topic", msg.Topic, "error", err)
		return
	}
	d.pingsSent.Add(1)
	slog.Debug("Silent ping sent", "slug", post.Slug, "topic", msg.Topic)
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, msg Message) error {
	var err error
	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		if err = d.sender.Send(ctx, msg); err == nil {
			return nil
		}
		if attempt == d.opts.Attempts {
			break
		}

		slog.Warn("Send attempt failed", "topic", msg.Topic, "attempt", attempt, "max_attempts", d.opts.Attempts, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.opts.RetryDelay):
		}
	}
	return err
}

func changeType(isNew bool) string {
	if isNew {
		return "new"
	}
	return "update"
}
