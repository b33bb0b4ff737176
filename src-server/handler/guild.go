package handler

import (
	"context"
	"log/slog"
	"time"

	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

type requiredPermission struct {
	name string
	bit  int64
}

var requiredPermissions = []requiredPermission{
	{"Manage Messages", discordgo.PermissionManageMessages}, // clear reactions, moderate channels
	{"Add Reactions", discordgo.PermissionAddReactions},
	{"View Channel", discordgo.PermissionViewChannel},
	{"Send Messages", discordgo.PermissionSendMessages},
	{"Read Message History", discordgo.PermissionReadMessageHistory}, // reactions on events older than the last start
	{"Mention Everyone", discordgo.PermissionMentionEveryone},
}

// GuildPermissions warns about every permission the bot lacks when it joins
// (or reconnects to) a guild. Nothing is refused, the commands that need a
// missing permission just fail later.
func GuildPermissions(as *utils.AppState) {
	as.DgSession.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if g.Guild == nil || g.Unavailable || s.State == nil || s.State.User == nil {
			return
		}
		channelID := permissionChannel(g.Guild)
		if channelID == "" {
			slog.Debug("GuildPermissions: guild has no text channel to check", "guild", g.ID)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		perms, err := s.UserChannelPermissions(s.State.User.ID, channelID, discordgo.WithContext(ctx))
		if err != nil {
			slog.Warn("GuildPermissions: can't get permissions", "guild", g.ID, "channel", channelID, "error", err)
			return
		}

		missing := missingPermissions(perms)
		for _, name := range missing {
			slog.Warn("missing permission", "guild", g.Name, "guildId", g.ID, "permission", name)
		}
		slog.Info("joined guild", "guild", g.Name, "guildId", g.ID, "missingPermissions", len(missing))
	})
}

// permissionChannel picks the system channel, else the first text channel.
func permissionChannel(g *discordgo.Guild) string {
	if g.SystemChannelID != "" {
		return g.SystemChannelID
	}
	for _, c := range g.Channels {
		if c != nil && c.Type == discordgo.ChannelTypeGuildText {
			return c.ID
		}
	}
	return ""
}

func missingPermissions(perms int64) []string {
	if perms&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []string
	for _, p := range requiredPermissions {
		if perms&p.bit == 0 {
			missing = append(missing, p.name)
		}
	}
	return missing
}
