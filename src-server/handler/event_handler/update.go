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

func update(as *utils.AppState, engine *scheduler.Engine, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]utils.AppCmdHandler) {
	id := "update"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Reschedule one of your events.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "The event number, without the #.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "The new text and date of the event.",
				Required:    true,
			},
		},
	})
	cmdHandler[id] = updateHandler(as, engine)
}

func updateHandler(as *utils.AppState, engine *scheduler.Engine) utils.AppCmdHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		now := time.Now()

		startTimer := time.Now()
		if err := utils.InteractRespDefer(s, i, true); err != nil {
			slog.Warn("event_handler:update: can't send defer message", "error", err)
			return nil
		}
		as.MetricChans.ObserveDiscordSendMessage(startTimer)

		var (
			recordID int64
			text     string
		)
		options := subcommandOptions(i)
		if opt, ok := options["id"]; ok {
			recordID = opt.IntValue()
		}
		if opt, ok := options["text"]; ok {
			text = opt.StringValue()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// other scopes' events are invisible from here
		if _, err := engine.ShowEvent(ctx, scopeOf(i), recordID); err != nil {
			utils.InteractRespEdit(s, i, fmt.Sprintf("Couldn't find an event with id #%d", recordID))
			return nil
		}

		event, err := engine.UpdateEvent(ctx, actorOf(i), recordID, text, now)
		if err != nil {
			utils.InteractRespEdit(s, i, scheduler.UserMessage(err))
			slog.Debug("event_handler:update: rejected", "id", recordID, "error", err)
			return nil
		}

		utils.InteractRespEdit(s, i, fmt.Sprintf("Updated event %s: %s", event.Ref(), event.URL()))
		return nil
	}
}
