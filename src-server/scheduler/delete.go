package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"rsvpbot/src-server/model"
)

// DeleteEvent removes the event behind messageID when the policy allows
// actorID (with its admin flag) to. The record is deleted and the timer
// dropped under the key lock; the chat message is removed afterwards and a
// failure there is only logged.
func (e *Engine) DeleteEvent(ctx context.Context, actorID string, admin bool, messageID string) error {
	event, err := func() (model.Event, error) {
		unlock := e.index.Lock(messageID)
		defer unlock()

		current, ok := e.index.Get(messageID)
		if !ok {
			return model.Event{}, ErrNotFound
		}
		if !e.policy(current, actorID, admin) {
			return model.Event{}, ErrPermissionDenied
		}
		if err := e.store.Delete(ctx, messageID); err != nil {
			return model.Event{}, storeErr("store delete", err)
		}
		e.index.Remove(messageID)
		return current, nil
	}()
	if err != nil {
		return fmt.Errorf("(*Engine).DeleteEvent: %w", err)
	}

	if err := e.chat.DeleteMessage(ctx, event.ChannelID, event.MessageID); err != nil {
		slog.Warn("(*Engine).DeleteEvent: can't delete event message", "message", messageID, "error", err)
	}
	e.metrics.IncEventDeleted()
	slog.Info("event deleted", "id", event.ID, "message", messageID, "actor", actorID, "admin", admin)
	return nil
}

// fire is the timer callback for generation gen of key. Claiming the index
// entry is what makes it run at most once: a fire that lost to a delete, an
// update or a newer timer finds nothing to claim and returns.
//
// Delivery is at most once. The record is removed even when the reminder
// could not be sent, otherwise a broken channel would be notified forever.
func (e *Engine) fire(key string, gen uint64) {
	if !e.begin() {
		return
	}
	defer e.inflight.Done()
	ctx := e.ctx

	unlock := e.index.Lock(key)
	event, ok := e.index.Claim(key, gen)
	unlock()
	if !ok {
		slog.Debug("fire: timer is stale, skipping", "message", key, "generation", gen)
		return
	}
	slog.Info("event is due, notifying", "id", event.ID, "message", key, "due", event.DueAt())

	var available []model.Reactor
	if err := e.retry(ctx, func() error {
		var err error
		available, err = e.chat.FetchReactors(ctx, event.ChannelID, event.MessageID, e.emojis.Available)
		return err
	}); err != nil {
		slog.Warn("fire: can't fetch attendees, notifying without mentions", "message", key, "error", err)
	}
	ledger := model.NewLedger(map[model.Category][]model.Reactor{model.CategoryAvailable: available})

	if err := e.retry(ctx, func() error {
		_, err := e.chat.SendMessage(ctx, event.ChannelID, event.NotificationMessage(ledger))
		return err
	}); err != nil {
		slog.Error("fire: can't send notification, dropping it", "message", key, "error", err)
	} else {
		e.metrics.IncEventFired()
	}

	if err := e.store.Delete(ctx, key); err != nil {
		// the next start or an update re-arms it
		slog.Error("fire: can't delete fired event", "message", key, "error", err)
	}
	unlock = e.index.Lock(key)
	e.index.Release(key, gen)
	unlock()

	if err := e.retry(ctx, func() error {
		return e.chat.DeleteMessage(ctx, event.ChannelID, event.MessageID)
	}); err != nil {
		slog.Warn("fire: can't delete event message", "message", key, "error", err)
	}
	slog.Info("event fired and removed", "id", event.ID, "message", key)
}
