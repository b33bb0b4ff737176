package scheduler

import (
	"context"

	"rsvpbot/src-server/model"
)

// ListEvents returns the events of a guild (or DM channel), soonest first.
func (e *Engine) ListEvents(ctx context.Context, scopeID string) ([]model.Event, error) {
	events, err := e.store.FindAllByScope(ctx, scopeID)
	if err != nil {
		return nil, storeErr("(*Engine).ListEvents", err)
	}
	return events, nil
}

// ShowEvent looks up #recordID inside scopeID. Events of other scopes are
// reported as missing.
func (e *Engine) ShowEvent(ctx context.Context, scopeID string, recordID int64) (model.Event, error) {
	event, err := e.store.FindByID(ctx, recordID)
	if err != nil {
		return model.Event{}, storeErr("(*Engine).ShowEvent", err)
	}
	if event.GuildID != scopeID {
		return model.Event{}, storeErr("(*Engine).ShowEvent", model.ErrEventNotFound)
	}
	return event, nil
}
