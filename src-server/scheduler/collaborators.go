package scheduler

import (
	"context"
	"time"

	"rsvpbot/src-server/dateparse"
	"rsvpbot/src-server/model"

	"github.com/bwmarrin/discordgo"
)

// Store is the durable event store. message_id uniqueness is its job.
type Store interface {
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id int64) (model.Event, error)
	FindAllByScope(ctx context.Context, scopeID string) ([]model.Event, error)
	FindAll(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, messageID string) error
}

// Chat is the chat platform as seen by the engine.
type Chat interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	FetchReactors(ctx context.Context, channelID, messageID, emoji string) ([]model.Reactor, error)
	RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error
	// CleanContent renders mentions in text the way users see them.
	CleanContent(ctx context.Context, scopeID, text string) string
}

// DateExtractor finds date phrases, preferring future occurrences.
type DateExtractor interface {
	Parse(text string, ref time.Time) ([]dateparse.Match, error)
}

// Metrics receives lifecycle counters.
type Metrics interface {
	IncEventFired()
	IncEventDeleted()
}

type noopMetrics struct{}

func (noopMetrics) IncEventFired()   {}
func (noopMetrics) IncEventDeleted() {}
