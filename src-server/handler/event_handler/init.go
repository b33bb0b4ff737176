package event_handler

import (
	"rsvpbot/src-server/scheduler"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

// Init injects one "event" slash command with multiple subcommands
// into appCmdInfo and appCmdHandler in AppState.
func Init(as *utils.AppState, engine *scheduler.Engine) {
	// works similar to how we create a new slash command using
	// appCmdInfo and appCmdHandler in AppState.
	localCmdInfo := make(
		[]*discordgo.ApplicationCommandOption, 0,
	)
	localCmdHandler := make(
		map[string]utils.AppCmdHandler,
	)

	// injecting info and handler into 2 local maps
	create(as, engine, &localCmdInfo, localCmdHandler)
	update(as, engine, &localCmdInfo, localCmdHandler)
	delete(as, engine, &localCmdInfo, localCmdHandler)
	list(as, engine, &localCmdInfo, localCmdHandler)
	show(as, engine, &localCmdInfo, localCmdHandler)

	id := "event"
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:        id,
		Description: "Event management commands.",
		Options:     localCmdInfo,
	})
	as.AddAppCmdHandler(id, func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		data := i.ApplicationCommandData()
		if len(data.Options) == 0 {
			return nil
		}
		if handler, ok := localCmdHandler[data.Options[0].Name]; ok {
			return handler(s, i)
		}
		return nil
	})
}

// #region - interaction helpers

func subcommandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return nil
	}
	options := data.Options[0].Options
	optionMap := make(
		map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options),
	)
	for _, opt := range options {
		optionMap[opt.Name] = opt
	}
	return optionMap
}

// scopeOf is the guild of the interaction; direct messages are scoped to
// their channel.
func scopeOf(i *discordgo.InteractionCreate) string {
	if i.GuildID != "" {
		return i.GuildID
	}
	return i.ChannelID
}

func actorOf(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	}
	return ""
}

// isAdmin: members allowed to manage messages in the channel.
func isAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&(discordgo.PermissionManageMessages|discordgo.PermissionAdministrator) != 0
}

// #endregion
