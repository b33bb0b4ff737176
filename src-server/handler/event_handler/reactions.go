package event_handler

import (
	"context"
	"log/slog"
	"time"

	"rsvpbot/src-server/scheduler"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

// Reactions routes reactions on event messages to the engine. Bots, the bot
// itself included, are ignored.
func Reactions(as *utils.AppState, engine *scheduler.Engine) {
	deleteEmoji := engine.Emojis().Delete

	as.DgSession.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.MessageReaction == nil || isBotReaction(s, r.UserID, r.Member) {
			return
		}
		if !engine.IsEvent(r.MessageID) {
			return
		}
		emoji := r.Emoji.APIName()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		admin := false
		if emoji == deleteEmoji {
			admin = canManageMessages(s, r.UserID, r.ChannelID)
		}
		if err := engine.HandleReactionAdded(ctx, r.MessageID, r.UserID, emoji, admin); err != nil {
			slog.Info("reaction not applied", "message", r.MessageID, "user", r.UserID, "emoji", emoji, "reason", scheduler.UserMessage(err), "error", err)
		}
	})

	as.DgSession.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		if r.MessageReaction == nil || isBotReaction(s, r.UserID, nil) {
			return
		}
		if !engine.IsEvent(r.MessageID) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := engine.HandleReactionRemoved(ctx, r.MessageID, r.UserID, r.Emoji.APIName()); err != nil {
			slog.Warn("can't handle reaction removal", "message", r.MessageID, "error", err)
		}
	})
}

func isBotReaction(s *discordgo.Session, userID string, member *discordgo.Member) bool {
	if s.State != nil && s.State.User != nil && s.State.User.ID == userID {
		return true
	}
	return member != nil && member.User != nil && member.User.Bot
}

func canManageMessages(s *discordgo.Session, userID, channelID string) bool {
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		slog.Debug("can't get channel permissions, treating as non-admin", "user", userID, "channel", channelID, "error", err)
		return false
	}
	return perms&(discordgo.PermissionManageMessages|discordgo.PermissionAdministrator) != 0
}
