package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"rsvpbot/src-server/model"
)

// HandleReactionAdded routes a reaction added to an event message: the delete
// control deletes the event, an RSVP emoji is reconciled and re-rendered.
// Reactions on other messages or with other emojis are ignored.
func (e *Engine) HandleReactionAdded(ctx context.Context, messageID, actorID, emoji string, admin bool) error {
	event, ok := e.index.Get(messageID)
	if !ok {
		return nil
	}

	if emoji != "" && emoji == e.emojis.Delete {
		if err := e.DeleteEvent(ctx, actorID, admin, messageID); err != nil {
			return fmt.Errorf("(*Engine).HandleReactionAdded: %w", err)
		}
		return nil
	}

	category, ok := e.emojis.Category(emoji)
	if !ok {
		return nil
	}
	slog.Debug("rsvp added", "message", messageID, "actor", actorID, "category", category)
	e.reconciler.Reconcile(ctx, event, actorID, category)
	e.render(ctx, messageID)
	return nil
}

// HandleReactionRemoved re-renders after an RSVP emoji was removed. It never
// reconciles.
func (e *Engine) HandleReactionRemoved(ctx context.Context, messageID, actorID, emoji string) error {
	if !e.IsEvent(messageID) {
		return nil
	}
	category, ok := e.emojis.Category(emoji)
	if !ok {
		return nil
	}
	slog.Debug("rsvp removed", "message", messageID, "actor", actorID, "category", category)
	e.render(ctx, messageID)
	return nil
}

// Ledger rebuilds the attendance of an event from the chat's current
// reactions. A category whose reactors can't be fetched renders empty.
func (e *Engine) Ledger(ctx context.Context, event model.Event) model.Ledger {
	raw := make(map[model.Category][]model.Reactor, len(model.Categories))
	for _, category := range model.Categories {
		emoji := e.emojis.For(category)
		if emoji == "" {
			continue
		}
		reactors, err := e.chat.FetchReactors(ctx, event.ChannelID, event.MessageID, emoji)
		if err != nil {
			slog.Warn("(*Engine).Ledger: can't fetch reactors", "message", event.MessageID, "category", category, "error", err)
			continue
		}
		raw[category] = reactors
	}
	return model.NewLedger(raw)
}

// render refreshes the event message from the cached record and a freshly
// fetched ledger. Events that are gone are left alone.
func (e *Engine) render(ctx context.Context, messageID string) {
	event, ok := e.index.Get(messageID)
	if !ok {
		return
	}
	ledger := e.Ledger(ctx, event)
	if err := e.chat.EditMessage(ctx, event.ChannelID, event.MessageID, event.ToDiscordEmbed(ledger)); err != nil {
		slog.Warn("(*Engine).render: can't edit event message", "message", messageID, "error", err)
	}
}
