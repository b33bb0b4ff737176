package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrDuplicateMessage = errors.New("an event already exists for this message")
)

// EventStore persists events with bun. OnRead/OnWrite, when set, receive the
// start time of every query for latency metrics.
type EventStore struct {
	db      bun.IDB
	OnRead  func(since time.Time)
	OnWrite func(since time.Time)
}

func NewEventStore(db bun.IDB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) read(start time.Time) {
	if s.OnRead != nil {
		s.OnRead(start)
	}
}

func (s *EventStore) write(start time.Time) {
	if s.OnWrite != nil {
		s.OnWrite(start)
	}
}

// Create inserts e and fills in its ID.
func (s *EventStore) Create(ctx context.Context, e *Event) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UTC().Unix()
	}
	defer s.write(time.Now())
	if _, err := s.db.NewInsert().
		Model(e).
		Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("(*EventStore).Create: %w", ErrDuplicateMessage)
		}
		return fmt.Errorf("(*EventStore).Create: %w", err)
	}
	return nil
}

func (s *EventStore) FindByID(ctx context.Context, id int64) (Event, error) {
	defer s.read(time.Now())
	var e Event
	if err := s.db.NewSelect().
		Model(&e).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, fmt.Errorf("(*EventStore).FindByID: %w", ErrEventNotFound)
		}
		return Event{}, fmt.Errorf("(*EventStore).FindByID: %w", err)
	}
	return e, nil
}

func (s *EventStore) FindByMessageID(ctx context.Context, messageID string) (Event, error) {
	defer s.read(time.Now())
	var e Event
	if err := s.db.NewSelect().
		Model(&e).
		Where("message_id = ?", messageID).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, fmt.Errorf("(*EventStore).FindByMessageID: %w", ErrEventNotFound)
		}
		return Event{}, fmt.Errorf("(*EventStore).FindByMessageID: %w", err)
	}
	return e, nil
}

// FindAllByScope lists a guild's (or a DM channel's) events, soonest first.
func (s *EventStore) FindAllByScope(ctx context.Context, scopeID string) ([]Event, error) {
	defer s.read(time.Now())
	events := make([]Event, 0)
	if err := s.db.NewSelect().
		Model(&events).
		Where("guild_id = ?", scopeID).
		Order("due_at ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*EventStore).FindAllByScope: %w", err)
	}
	return events, nil
}

func (s *EventStore) FindAll(ctx context.Context) ([]Event, error) {
	defer s.read(time.Now())
	events := make([]Event, 0)
	if err := s.db.NewSelect().
		Model(&events).
		Order("due_at ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*EventStore).FindAll: %w", err)
	}
	return events, nil
}

// Update saves the text and due date of e, bumping its sequence.
func (s *EventStore) Update(ctx context.Context, e *Event) error {
	defer s.write(time.Now())
	e.UpdatedAt = time.Now().UTC().Unix()
	e.Sequence++
	res, err := s.db.NewUpdate().
		Model(e).
		Column("title", "display_title", "due_at", "updated_at", "sequence").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("(*EventStore).Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("(*EventStore).Update: %w", ErrEventNotFound)
	}
	return nil
}

func (s *EventStore) Delete(ctx context.Context, messageID string) error {
	defer s.write(time.Now())
	res, err := s.db.NewDelete().
		Model((*Event)(nil)).
		Where("message_id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("(*EventStore).Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("(*EventStore).Delete: %w", ErrEventNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed: unique")
}
