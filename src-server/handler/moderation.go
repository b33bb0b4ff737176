package handler

import (
	"context"
	"log/slog"
	"time"

	"rsvpbot/src-server/model"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

// Moderation deletes human messages posted in registered channels, leaving
// only the bot's event messages.
func Moderation(as *utils.AppState) {
	as.DgSession.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.GuildID == "" || m.Author == nil || m.Author.Bot {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		startTimer := time.Now()
		moderated, err := model.IsChannelRegistered(ctx, as.BunDB, m.ChannelID)
		if err != nil {
			slog.Warn("Moderation: can't check if channel is registered", "channel", m.ChannelID, "error", err)
			return
		}
		as.MetricChans.ObserveDatabaseRead(startTimer)
		if !moderated {
			return
		}

		if err := s.ChannelMessageDelete(m.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
			slog.Warn("Moderation: can't delete message", "channel", m.ChannelID, "message", m.ID, "error", err)
			return
		}
		slog.Debug("moderated message", "channel", m.ChannelID, "author", m.Author.ID)
	})
}
