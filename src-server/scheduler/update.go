package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpbot/src-server/model"
)

// UpdateEvent re-parses text for the event #recordID and reschedules it. Only
// the owner may update. The old timer is replaced under the key lock, so it
// can never fire once this returns. A stored event without a timer is armed
// again, unless it is firing right now.
func (e *Engine) UpdateEvent(ctx context.Context, actorID string, recordID int64, text string, now time.Time) (model.Event, error) {
	stored, err := e.store.FindByID(ctx, recordID)
	if err != nil {
		return model.Event{}, storeErr("(*Engine).UpdateEvent", err)
	}

	parsed, err := e.parse(ctx, stored.GuildID, text, now)
	if err != nil {
		return model.Event{}, fmt.Errorf("(*Engine).UpdateEvent: %w", err)
	}

	event, err := func() (model.Event, error) {
		unlock := e.index.Lock(stored.MessageID)
		defer unlock()

		current, ok := e.index.Get(stored.MessageID)
		if !ok {
			if stored.MessageID == "" || e.index.Firing(stored.MessageID) {
				return model.Event{}, ErrNotFound
			}
			// stored but not armed: it failed to load, or its fire could
			// not delete it. A delete that won meanwhile fails the update.
			current = stored
		}
		if actorID == "" || actorID != current.OwnerID {
			return model.Event{}, ErrPermissionDenied
		}

		current.Title = parsed.title
		current.DisplayTitle = parsed.display
		current.SetDueAt(parsed.dueAt)
		if err := e.store.Update(ctx, &current); err != nil {
			return model.Event{}, storeErr("store update", err)
		}
		e.index.Arm(current, e.fire)
		return current, nil
	}()
	if err != nil {
		return model.Event{}, fmt.Errorf("(*Engine).UpdateEvent: %w", err)
	}

	slog.Info("event rescheduled", "id", event.ID, "message", event.MessageID, "due", event.DueAt(), "sequence", event.Sequence)
	e.render(ctx, event.MessageID)
	return event, nil
}
