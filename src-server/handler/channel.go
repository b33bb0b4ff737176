package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpbot/src-server/chat"
	"rsvpbot/src-server/model"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

// Channel injects the "channel" command: register or unregister a text
// channel for moderation. Only members who can manage the guild may use it.
func Channel(as *utils.AppState, discord *chat.Discord) {
	channelOption := []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "The text channel.",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			Required:     true,
		},
	}

	manageGuild := int64(discordgo.PermissionManageServer)
	id := "channel"
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:                     id,
		Description:              "Moderate a channel so that it only holds events.",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             new(bool),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "register",
				Description: "Delete every message in the channel that isn't an event.",
				Options:     channelOption,
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "unregister",
				Description: "Stop moderating the channel.",
				Options:     channelOption,
			},
		},
	})
	as.AddAppCmdHandler(id, channelHandler(as, discord))
}

func channelHandler(as *utils.AppState, discord *chat.Discord) utils.AppCmdHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		data := i.ApplicationCommandData()
		if len(data.Options) == 0 || len(data.Options[0].Options) == 0 {
			return nil
		}
		if i.GuildID == "" {
			utils.InteractRespHiddenReply(s, i, "Channels can only be moderated in a server.")
			return nil
		}
		subcommand := data.Options[0].Name
		channelID := data.Options[0].Options[0].ChannelValue(nil).ID

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		channel, err := discord.FetchChannel(ctx, channelID)
		if err != nil || channel.GuildID != i.GuildID || channel.Type != discordgo.ChannelTypeGuildText {
			utils.InteractRespHiddenReply(s, i, "Not a valid Text Channel: ignoring")
			return nil
		}

		switch subcommand {
		case "register":
			startTimer := time.Now()
			if err := (&model.RegisteredChannel{
				ChannelID: channel.ID,
				GuildID:   channel.GuildID,
				CreatedAt: time.Now().UTC().Unix(),
			}).Upsert(ctx, as.BunDB); err != nil {
				utils.InteractRespHiddenReply(s, i, "Can't register the channel, please try again later.")
				return fmt.Errorf("channelHandler: can't register channel: %w", err)
			}
			as.MetricChans.ObserveDatabaseWrite(startTimer)
			slog.Info("channel registered for moderation", "guild", channel.GuildID, "channel", channel.ID)
			utils.InteractRespHiddenReply(s, i, fmt.Sprintf("Registered %s for moderation", channel.Mention()))
		case "unregister":
			startTimer := time.Now()
			removed, err := model.UnregisterChannel(ctx, as.BunDB, channel.GuildID, channel.ID)
			if err != nil {
				utils.InteractRespHiddenReply(s, i, "Can't unregister the channel, please try again later.")
				return fmt.Errorf("channelHandler: can't unregister channel: %w", err)
			}
			as.MetricChans.ObserveDatabaseWrite(startTimer)
			if !removed {
				utils.InteractRespHiddenReply(s, i, fmt.Sprintf("%s not registered", channel.Mention()))
				return nil
			}
			slog.Info("channel unregistered", "guild", channel.GuildID, "channel", channel.ID)
			utils.InteractRespHiddenReply(s, i, fmt.Sprintf("Unregistered %s for moderation", channel.Mention()))
		}
		return nil
	}
}
