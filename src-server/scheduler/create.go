package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rsvpbot/src-server/dateparse"
	"rsvpbot/src-server/model"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// PendingEvent is a parsed event that has no message yet, so it is neither
// stored nor scheduled.
type PendingEvent struct {
	ProposalID uuid.UUID

	OwnerID   string
	GuildID   string
	ChannelID string

	Title        string
	DisplayTitle string
	DueAt        time.Time

	// the timestamp the due date was validated against
	ReferenceTime time.Time
	Match         dateparse.Match
}

// Preview is the event as it will look once committed, without an id.
func (p PendingEvent) Preview() model.Event {
	e := model.Event{
		OwnerID:      p.OwnerID,
		ChannelID:    p.ChannelID,
		GuildID:      p.GuildID,
		Title:        p.Title,
		DisplayTitle: p.DisplayTitle,
	}
	e.SetDueAt(p.DueAt)
	return e
}

type parsedText struct {
	title   string
	display string
	dueAt   time.Time
	match   dateparse.Match
}

// parse extracts the first date phrase of text and strips it from both the
// raw and the display text.
func (e *Engine) parse(ctx context.Context, scopeID, text string, now time.Time) (parsedText, error) {
	matches, err := e.dates.Parse(text, now)
	if err != nil {
		return parsedText{}, fmt.Errorf("%w: %w", ErrDateParse, err)
	}
	if len(matches) == 0 {
		return parsedText{}, ErrDateParse
	}
	m := matches[0]
	if !m.At.After(now) {
		return parsedText{}, fmt.Errorf("%w: %s is not after %s", ErrPastDate, m.At.UTC(), now.UTC())
	}

	title := dateparse.StripMatch(text, m)
	display := text
	if e.chat != nil {
		display = e.chat.CleanContent(ctx, scopeID, text)
	}
	display = utils.CleanupString(dateparse.StripMatch(display, m))

	return parsedText{
		title:   title,
		display: display,
		dueAt:   m.At.UTC(),
		match:   m,
	}, nil
}

// CreateEvent parses text into a pending event due after now.
func (e *Engine) CreateEvent(ctx context.Context, actorID, scopeID, channelID, text string, now time.Time) (PendingEvent, error) {
	parsed, err := e.parse(ctx, scopeID, text, now)
	if err != nil {
		return PendingEvent{}, fmt.Errorf("(*Engine).CreateEvent: %w", err)
	}
	return PendingEvent{
		ProposalID:    uuid.New(),
		OwnerID:       actorID,
		GuildID:       scopeID,
		ChannelID:     channelID,
		Title:         parsed.title,
		DisplayTitle:  parsed.display,
		DueAt:         parsed.dueAt,
		ReferenceTime: now,
		Match:         parsed.match,
	}, nil
}

// CommitEvent stores p under the message that represents it and arms its
// timer.
func (e *Engine) CommitEvent(ctx context.Context, p PendingEvent, messageID string) (model.Event, error) {
	event := p.Preview()
	event.MessageID = messageID
	if err := event.Validate(p.ReferenceTime); err != nil {
		return model.Event{}, fmt.Errorf("(*Engine).CommitEvent: %w", err)
	}

	unlock := e.index.Lock(messageID)
	defer unlock()

	if err := e.store.Create(ctx, &event); err != nil {
		return model.Event{}, fmt.Errorf("(*Engine).CommitEvent: %w: %w", ErrCollaborator, err)
	}
	e.index.Arm(event, e.fire)

	slog.Info("event scheduled", "id", event.ID, "message", messageID, "owner", event.OwnerID, "due", event.DueAt(), "proposal", p.ProposalID)
	return event, nil
}

// PublishEvent posts the preview of p, seeds the control reactions, commits
// the event and renders it with its id. Nothing is stored when the message
// can't be sent.
func (e *Engine) PublishEvent(ctx context.Context, p PendingEvent) (model.Event, error) {
	preview := p.Preview()
	messageID, err := e.chat.SendMessage(ctx, p.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{preview.ToDiscordEmbed(model.NewLedger(nil))},
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("(*Engine).PublishEvent: can't send event message: %w: %w", ErrCollaborator, err)
	}

	for _, emoji := range e.emojis.Controls() {
		if emoji == "" {
			continue
		}
		if err := e.chat.AddReaction(ctx, p.ChannelID, messageID, emoji); err != nil {
			slog.Warn("(*Engine).PublishEvent: can't add control reaction", "message", messageID, "emoji", emoji, "error", err)
		}
	}

	event, err := e.CommitEvent(ctx, p, messageID)
	if err != nil {
		if derr := e.chat.DeleteMessage(ctx, p.ChannelID, messageID); derr != nil {
			slog.Warn("(*Engine).PublishEvent: can't delete orphan event message", "message", messageID, "error", derr)
		}
		return model.Event{}, fmt.Errorf("(*Engine).PublishEvent: %w", err)
	}

	e.render(ctx, messageID)
	return event, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, model.ErrEventNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCollaborator, err)
}
