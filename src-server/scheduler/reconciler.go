package scheduler

import (
	"context"
	"log/slog"

	"rsvpbot/src-server/model"
)

// Emojis maps RSVP categories and the delete control to reaction emojis.
type Emojis struct {
	Available   string
	Unavailable string
	Tentative   string
	Delete      string
}

func DefaultEmojis() Emojis {
	return Emojis{
		Available:   "✅",
		Unavailable: "❌",
		Tentative:   "❔",
		Delete:      "🗑️",
	}
}

func (e Emojis) For(c model.Category) string {
	switch c {
	case model.CategoryAvailable:
		return e.Available
	case model.CategoryUnavailable:
		return e.Unavailable
	case model.CategoryTentative:
		return e.Tentative
	}
	return ""
}

// Category resolves an RSVP emoji. The delete control is not a category.
func (e Emojis) Category(emoji string) (model.Category, bool) {
	for _, c := range model.Categories {
		if emoji != "" && e.For(c) == emoji {
			return c, true
		}
	}
	return "", false
}

// Controls are the reactions the bot seeds on a new event message.
func (e Emojis) Controls() []string {
	return []string{e.Available, e.Unavailable, e.Tentative, e.Delete}
}

// Reconciler keeps an actor in at most one of the exclusive categories by
// removing their other reactions when they add one. It only acts on adds:
// reacting to removals would feed back on the removals it requests itself.
//
// Removal failures are logged and otherwise ignored. The ledger is always
// rebuilt from what the chat reports, so the display heals on the next render
// once the actor (or a later reconcile) clears the stale reaction.
type Reconciler struct {
	chat      Chat
	emojis    Emojis
	exclusive []model.Category
}

func NewReconciler(chat Chat, emojis Emojis, exclusive []model.Category) *Reconciler {
	return &Reconciler{chat: chat, emojis: emojis, exclusive: exclusive}
}

// ParseExclusive turns configured names into categories, skipping unknown ones.
func ParseExclusive(names []string) []model.Category {
	out := make([]model.Category, 0, len(names))
	seen := make(map[model.Category]struct{})
	for _, name := range names {
		c, err := model.ParseCategory(name)
		if err != nil {
			slog.Warn("ParseExclusive: ignoring unknown rsvp category", "category", name)
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (r *Reconciler) isExclusive(c model.Category) bool {
	for _, x := range r.exclusive {
		if x == c {
			return true
		}
	}
	return false
}

// Reconcile requests removal of actorID's reactions in the exclusive
// categories other than added, returning the categories it cleared.
func (r *Reconciler) Reconcile(ctx context.Context, e model.Event, actorID string, added model.Category) []model.Category {
	if !r.isExclusive(added) {
		return nil
	}

	removed := make([]model.Category, 0)
	for _, other := range r.exclusive {
		if other == added {
			continue
		}
		emoji := r.emojis.For(other)
		reactors, err := r.chat.FetchReactors(ctx, e.ChannelID, e.MessageID, emoji)
		if err != nil {
			slog.Warn("(*Reconciler).Reconcile: can't fetch reactors", "event", e.MessageID, "category", other, "error", err)
			continue
		}
		if !containsActor(reactors, actorID) {
			continue
		}
		if err := r.chat.RemoveReaction(ctx, e.ChannelID, e.MessageID, emoji, actorID); err != nil {
			slog.Warn("(*Reconciler).Reconcile: can't remove stale reaction", "event", e.MessageID, "category", other, "actor", actorID, "error", err)
			continue
		}
		slog.Debug("removed stale rsvp", "event", e.MessageID, "category", other, "actor", actorID)
		removed = append(removed, other)
	}
	return removed
}

func containsActor(reactors []model.Reactor, actorID string) bool {
	for _, reactor := range reactors {
		if reactor.ID == actorID {
			return true
		}
	}
	return false
}
