package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"rsvpbot/src-server/chat"
	"rsvpbot/src-server/dateparse"
	"rsvpbot/src-server/handler"
	"rsvpbot/src-server/handler/event_handler"
	"rsvpbot/src-server/metric"
	"rsvpbot/src-server/model"
	"rsvpbot/src-server/route"
	"rsvpbot/src-server/scheduler"
	"rsvpbot/src-server/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// raised or lowered from the config once it is loaded
var logLevel = new(slog.LevelVar)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	// There are 2 important things (and others) inside the AppState:
	// - appCmdInfo: a map of all slash commands
	// - appCmdHandler: a map of all slash command handlers
	as := utils.NewAppState()
	logLevel.Set(as.Config.GetLogLevel())

	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		slog.Error("can't create database schema", "error", err)
		os.Exit(1)
	}

	// #region - scheduler & its collaborators
	store := model.NewEventStore(as.BunDB)
	store.OnRead = as.MetricChans.ObserveDatabaseRead
	store.OnWrite = as.MetricChans.ObserveDatabaseWrite

	discord := chat.NewDiscord(as.DgSession)
	discord.OnSend = as.MetricChans.ObserveDiscordSendMessage

	emojis := scheduler.Emojis{
		Available:   as.Config.GetAvailableEmoji(),
		Unavailable: as.Config.GetUnavailableEmoji(),
		Tentative:   as.Config.GetTentativeEmoji(),
		Delete:      as.Config.GetDeleteEmoji(),
	}
	engine := scheduler.NewEngine(scheduler.Options{
		Store:         store,
		Chat:          discord,
		Dates:         dateparse.New(as.Config.GetLocation()),
		Emojis:        &emojis,
		Exclusive:     scheduler.ParseExclusive(as.Config.GetRSVPExclusive()),
		DeletePolicy:  scheduler.PolicyFromFlag(as.Config.GetAdminDelete()),
		RetryAttempts: as.Config.GetFireRetryAttempts(),
		Metrics:       as.MetricChans,
	})
	// #endregion

	// injecting interaction handlers into appCmdInfo, appCmdHandler in AppState
	event_handler.Init(as, engine)
	event_handler.Reactions(as, engine)
	handler.Channel(as, discord)
	handler.Moderation(as)
	handler.Ping(as, engine)
	handler.GuildPermissions(as)

	// tell discordgo how to handle interactions from Discord (w/ appCmdHandler)
	as.DgSession.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			slog.Debug("ignoring interaction", "type", i.Type)
			return
		}
		id := i.ApplicationCommandData().Name
		cmdHandler, ok := as.GetAppCmdHandler(id)
		if !ok {
			utils.InteractRespHiddenReply(s, i, "Unknown command")
			slog.Debug("someone used an unknown command", "command", id)
			return
		}
		if err := cmdHandler(s, i); err != nil {
			slog.Error("handler error", "command", id, "error", err)
		}
	})

	// timers are armed once the gateway is up, so that overdue events can
	// notify right away
	as.DgSession.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected to discord", "user", r.User.Username, "guilds", len(r.Guilds))
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := engine.Initialize(ctx); err != nil {
			slog.Error("can't schedule stored events", "error", err)
		}
	})

	// open a connection to Discord
	if err := as.DgSession.Open(); err != nil {
		slog.Error("error opening connection", "error", err)
		os.Exit(1)
	}

	// tell Discord what commands we have (w/ appCmdInfo)
	if _, err := as.DgSession.ApplicationCommandBulkOverwrite(
		as.Config.GetDiscordClientId(),
		as.Config.GetDiscordGuildID(),
		func() []*discordgo.ApplicationCommand {
			var cmds []*discordgo.ApplicationCommand
			as.IterateAppCmdInfo(func(k string, v *discordgo.ApplicationCommand) {
				cmds = append(cmds, v)
			})
			return cmds
		}()); err != nil {
		slog.Error("can't create slash commands", "error", err.Error())
	}

	// cleanup appCmdInfo from memory
	as.NukeAppCmdInfo()
	runtime.GC()

	metric.Init(as, engine.Scheduled)

	// http server
	go func() {
		muxer := http.NewServeMux()
		muxer.Handle("GET /metrics", promhttp.Handler())
		route.Events(muxer, engine)
		if err := http.ListenAndServe(":"+as.Config.GetPort(), route.LogMiddleware(muxer)); err != nil {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit")

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan

	slog.Info("Gracefully shutting down...")
	engine.Stop()
	as.GracefulShutdown()
}
