package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"rsvpbot/src-server/model"

	"github.com/cenkalti/backoff/v4"
)

type Options struct {
	Store Store
	Chat  Chat
	Dates DateExtractor

	// defaults to the wall clock
	Clock Clock
	// defaults to DefaultEmojis
	Emojis *Emojis
	// categories the reconciler keeps mutually exclusive, defaults to all three
	Exclusive []model.Category
	// defaults to OwnerOnly
	DeletePolicy DeletePolicy
	// retries of each chat call made while firing
	RetryAttempts uint64
	// defaults to exponential backoff
	RetryBackOff func() backoff.BackOff
	Metrics      Metrics
}

// Engine owns the event lifecycle: it keeps the store, the timer index and
// the chat messages of every event in step.
type Engine struct {
	store      Store
	chat       Chat
	dates      DateExtractor
	clock      Clock
	emojis     Emojis
	policy     DeletePolicy
	reconciler *Reconciler
	index      *TimerIndex
	metrics    Metrics

	retryAttempts uint64
	retryBackOff  func() backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc

	initialized atomic.Bool
	mu          sync.Mutex
	stopped     bool
	inflight    sync.WaitGroup
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		store:         opts.Store,
		chat:          opts.Chat,
		dates:         opts.Dates,
		clock:         opts.Clock,
		policy:        opts.DeletePolicy,
		metrics:       opts.Metrics,
		retryAttempts: opts.RetryAttempts,
		retryBackOff:  opts.RetryBackOff,
	}
	if e.clock == nil {
		e.clock = realClock{}
	}
	if opts.Emojis != nil {
		e.emojis = *opts.Emojis
	} else {
		e.emojis = DefaultEmojis()
	}
	exclusive := opts.Exclusive
	if exclusive == nil {
		exclusive = model.Categories
	}
	if e.policy == nil {
		e.policy = OwnerOnly()
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	if e.retryBackOff == nil {
		e.retryBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = time.Minute
			return b
		}
	}
	e.reconciler = NewReconciler(e.chat, e.emojis, exclusive)
	e.index = NewTimerIndex(e.clock)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Initialize arms a timer for every stored event. Events that came due while
// the process was down fire right away. Only the first successful call does
// anything.
func (e *Engine) Initialize(ctx context.Context) error {
	if !e.initialized.CompareAndSwap(false, true) {
		return nil
	}

	events, err := e.store.FindAll(ctx)
	if err != nil {
		e.initialized.Store(false)
		return fmt.Errorf("(*Engine).Initialize: %w: %w", ErrCollaborator, err)
	}

	now := e.clock.Now()
	armed, overdue := 0, 0
	for _, event := range events {
		if err := e.load(event); err != nil {
			slog.Error("(*Engine).Initialize: can't schedule event, skipping", "id", event.ID, "message", event.MessageID, "error", err)
			continue
		}
		armed++
		if !event.DueAt().After(now) {
			overdue++
		}
		slog.Debug("loaded event", "id", event.ID, "message", event.MessageID, "guild", event.GuildID, "due", event.DueAt())
	}
	slog.Info("events scheduled", "armed", armed, "overdue", overdue, "stored", len(events))
	return nil
}

func (e *Engine) load(event model.Event) error {
	if event.MessageID == "" {
		return fmt.Errorf("message id is blank")
	}
	if event.DueAtUnixUTC == 0 {
		return fmt.Errorf("due date is blank")
	}
	unlock := e.index.Lock(event.MessageID)
	defer unlock()
	if _, exists := e.index.Get(event.MessageID); exists {
		return fmt.Errorf("message %s is already scheduled", event.MessageID)
	}
	e.index.Arm(event, e.fire)
	return nil
}

// Stop disarms every timer and waits for fires already running. Stored
// events are kept for the next start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	e.index.StopAll()
	e.inflight.Wait()
	e.cancel()
	slog.Info("scheduler stopped")
}

func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}
	e.inflight.Add(1)
	return true
}

// IsEvent reports whether messageID is a live event message.
func (e *Engine) IsEvent(messageID string) bool {
	_, ok := e.index.Get(messageID)
	return ok
}

// Scheduled is the number of armed timers.
func (e *Engine) Scheduled() int {
	return e.index.Len()
}

func (e *Engine) Emojis() Emojis {
	return e.emojis
}

// retry runs op with bounded retries. Used on the fire path only, where
// nobody is waiting on the result.
func (e *Engine) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(e.retryBackOff(), e.retryAttempts), ctx)
	return backoff.Retry(op, b)
}
