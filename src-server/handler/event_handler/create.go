package event_handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpbot/src-server/scheduler"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func create(as *utils.AppState, engine *scheduler.Engine, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]utils.AppCmdHandler) {
	id := "create"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Create an event, e.g. \"raid night friday 8pm\".",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "What and when, in plain words.",
				Required:    true,
			},
		},
	})
	cmdHandler[id] = createHandler(as, engine)
}

func createHandler(as *utils.AppState, engine *scheduler.Engine) utils.AppCmdHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		now := time.Now()

		// #region - reply w/ deferred
		startTimer := time.Now()
		if err := utils.InteractRespDefer(s, i, true); err != nil {
			slog.Warn("event_handler:create: can't send defer message", "error", err)
			return nil
		}
		as.MetricChans.ObserveDiscordSendMessage(startTimer)
		// #endregion

		var text string
		if opt, ok := subcommandOptions(i)["text"]; ok {
			text = opt.StringValue()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pending, err := engine.CreateEvent(ctx, actorOf(i), scopeOf(i), i.ChannelID, text, now)
		if err != nil {
			utils.InteractRespEdit(s, i, scheduler.UserMessage(err))
			slog.Debug("event_handler:create: rejected", "text", text, "error", err)
			return nil
		}

		event, err := engine.PublishEvent(ctx, pending)
		if err != nil {
			utils.InteractRespEdit(s, i, scheduler.UserMessage(err))
			return fmt.Errorf("event_handler:create: can't publish event: %w", err)
		}

		utils.InteractRespEdit(s, i, fmt.Sprintf("Created event %s: %s", event.Ref(), event.URL()))
		return nil
	}
}
