package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// RegisteredChannel is a channel under moderation: human chatter is removed
// so that only event messages remain.
type RegisteredChannel struct {
	bun.BaseModel `bun:"table:registered_channels"`

	ChannelID string `bun:"channel_id,pk"`       // required
	GuildID   string `bun:"guild_id,notnull"`    // required
	CreatedAt int64  `bun:"created_at,notnull"` // required
}

func (r *RegisteredChannel) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case r.ChannelID == "":
		return fmt.Errorf("(*RegisteredChannel).Upsert: channel id is blank")
	case r.GuildID == "":
		return fmt.Errorf("(*RegisteredChannel).Upsert: guild id is blank")
	}

	if _, err := db.NewInsert().
		Model(r).
		On("CONFLICT (channel_id) DO UPDATE").
		Set("guild_id = EXCLUDED.guild_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*RegisteredChannel).Upsert: %w", err)
	}
	return nil
}

// UnregisterChannel removes the registration, reporting whether one existed.
func UnregisterChannel(ctx context.Context, db bun.IDB, guildID, channelID string) (bool, error) {
	res, err := db.NewDelete().
		Model((*RegisteredChannel)(nil)).
		Where("channel_id = ?", channelID).
		Where("guild_id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("UnregisterChannel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("UnregisterChannel: %w", err)
	}
	return n > 0, nil
}

func IsChannelRegistered(ctx context.Context, db bun.IDB, channelID string) (bool, error) {
	if channelID == "" {
		return false, nil
	}
	exists, err := db.NewSelect().
		Model((*RegisteredChannel)(nil)).
		Where("channel_id = ?", channelID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("IsChannelRegistered: %w", err)
	}
	return exists, nil
}
