package event_handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpbot/src-server/model"
	"rsvpbot/src-server/scheduler"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func list(as *utils.AppState, engine *scheduler.Engine, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]utils.AppCmdHandler) {
	id := "list"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "List upcoming events.",
	})
	cmdHandler[id] = listHandler(as, engine)
}

func listHandler(as *utils.AppState, engine *scheduler.Engine) utils.AppCmdHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		startTimer := time.Now()
		if err := utils.InteractRespDefer(s, i, false); err != nil {
			slog.Warn("event_handler:list: can't send defer message", "error", err)
			return nil
		}
		as.MetricChans.ObserveDiscordSendMessage(startTimer)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		events, err := engine.ListEvents(ctx, scopeOf(i))
		if err != nil {
			utils.InteractRespEdit(s, i, scheduler.UserMessage(err))
			return fmt.Errorf("event_handler:list: %w", err)
		}

		utils.InteractRespEditEmbeds(s, i, "", []*discordgo.MessageEmbed{model.ToListEmbed(events)})
		return nil
	}
}

func show(as *utils.AppState, engine *scheduler.Engine, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]utils.AppCmdHandler) {
	id := "show"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Link to an event.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "The event number, without the #.",
				Required:    true,
			},
		},
	})
	cmdHandler[id] = showHandler(engine)
}

func showHandler(engine *scheduler.Engine) utils.AppCmdHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		var recordID int64
		if opt, ok := subcommandOptions(i)["id"]; ok {
			recordID = opt.IntValue()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event, err := engine.ShowEvent(ctx, scopeOf(i), recordID)
		if err != nil {
			utils.InteractRespHiddenReply(s, i, fmt.Sprintf("Couldn't find an event with id #%d", recordID))
			return nil
		}
		utils.InteractRespHiddenReply(s, i, fmt.Sprintf("%s: %s", event.Name(), event.URL()))
		return nil
	}
}
