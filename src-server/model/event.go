package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Event is one scheduled, not yet fired event. The row lives exactly as long
// as its timer does.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	MessageID string `bun:"message_id,notnull,unique" json:"message_id"` // required
	OwnerID   string `bun:"owner_id,notnull" json:"owner_id"`            // required
	ChannelID string `bun:"channel_id,notnull" json:"channel_id"`        // required
	GuildID   string `bun:"guild_id,notnull" json:"guild_id"`            // required

	Title        string `bun:"title" json:"title"`
	DisplayTitle string `bun:"display_title" json:"display_title"`

	DueAtUnixUTC int64 `bun:"due_at,notnull" json:"due_at"` // required

	CreatedAt int64 `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt int64 `bun:"updated_at" json:"updated_at"`
	Sequence  int   `bun:"sequence" json:"sequence"`
}

func (e *Event) DueAt() time.Time {
	return time.Unix(e.DueAtUnixUTC, 0).UTC()
}

func (e *Event) SetDueAt(t time.Time) {
	e.DueAtUnixUTC = t.UTC().Unix()
}

// Validate checks the fields required to persist the event, with now as the
// reference for the future-date rule.
func (e *Event) Validate(now time.Time) error {
	switch {
	case e.MessageID == "":
		return fmt.Errorf("(*Event).Validate: message id is blank")
	case e.OwnerID == "":
		return fmt.Errorf("(*Event).Validate: owner id is blank")
	case e.ChannelID == "":
		return fmt.Errorf("(*Event).Validate: channel id is blank")
	case e.GuildID == "":
		return fmt.Errorf("(*Event).Validate: guild id is blank")
	case e.DueAtUnixUTC == 0:
		return fmt.Errorf("(*Event).Validate: due date is blank")
	case !e.DueAt().After(now):
		return fmt.Errorf("(*Event).Validate: due date %s is not after %s", e.DueAt(), now.UTC())
	}
	return nil
}

// Name is the text shown to users, "Untitled event" when only a date was given.
func (e *Event) Name() string {
	if name := strings.TrimSpace(e.DisplayTitle); name != "" {
		return name
	}
	if name := strings.TrimSpace(e.Title); name != "" {
		return name
	}
	return "Untitled event"
}

// Ref is the human facing reference, e.g. #12.
func (e *Event) Ref() string {
	return fmt.Sprintf("#%d", e.ID)
}

// URL is a jump link to the event message. Direct messages have the channel
// as scope and use the @me pseudo guild.
func (e *Event) URL() string {
	guild := e.GuildID
	if guild == "" || guild == e.ChannelID {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, e.ChannelID, e.MessageID)
}
