package event_handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rsvpbot/src-server/scheduler"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func delete(as *utils.AppState, engine *scheduler.Engine, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]utils.AppCmdHandler) {
	id := "delete"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Delete an event.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "The event number, without the #.",
				Required:    true,
			},
		},
	})
	cmdHandler[id] = deleteHandler(as, engine)
}

func deleteHandler(as *utils.AppState, engine *scheduler.Engine) utils.AppCmdHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		startTimer := time.Now()
		if err := utils.InteractRespDefer(s, i, true); err != nil {
			slog.Warn("event_handler:delete: can't send defer message", "error", err)
			return nil
		}
		as.MetricChans.ObserveDiscordSendMessage(startTimer)

		var recordID int64
		if opt, ok := subcommandOptions(i)["id"]; ok {
			recordID = opt.IntValue()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		event, err := engine.ShowEvent(ctx, scopeOf(i), recordID)
		if err != nil {
			utils.InteractRespEdit(s, i, fmt.Sprintf("Couldn't find an event with id #%d", recordID))
			return nil
		}

		if err := engine.DeleteEvent(ctx, actorOf(i), isAdmin(i), event.MessageID); err != nil {
			utils.InteractRespEdit(s, i, scheduler.UserMessage(err))
			if errors.Is(err, scheduler.ErrCollaborator) {
				return fmt.Errorf("event_handler:delete: %w", err)
			}
			return nil
		}

		utils.InteractRespEdit(s, i, fmt.Sprintf("Deleted event %s: %s", event.Ref(), event.Name()))
		return nil
	}
}
