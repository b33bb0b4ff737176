package utils

import (
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppCmdHandler = func(s *discordgo.Session, i *discordgo.InteractionCreate) error

type AppState struct {
	Config      *Config
	RawDB       *sql.DB
	BunDB       *bun.DB
	DgSession   *discordgo.Session
	MetricChans *Metric

	// will be send to Discord
	appCmdInfo map[string]*discordgo.ApplicationCommand
	// handling commands from Discord WSAPI
	appCmdHandler map[string]AppCmdHandler
	appCmdMu      sync.RWMutex

	// receives SIGINT/SIGTERM, or a manual shutdown request
	AppCloseSignalChan chan os.Signal
	// every long running goroutine gets its own channel, closed on shutdown
	gracefulShutdownChans []chan struct{}
	shutdownMu            sync.Mutex

	startedAt time.Time
}

func NewAppState() *AppState {
	as := &AppState{
		appCmdInfo:         make(map[string]*discordgo.ApplicationCommand),
		appCmdHandler:      make(map[string]AppCmdHandler),
		AppCloseSignalChan: make(chan os.Signal, 1),
		MetricChans:        NewMetric(),
		startedAt:          time.Now(),
	}

	// env
	as.Config = NewConfig()

	// database
	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, as.Config.GetDatabasePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDB.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	// discord
	as.DgSession, err = discordgo.New("Bot " + as.Config.GetDiscordAppToken())
	if err != nil {
		slog.Error("can't create discord session", "error", err)
		os.Exit(1)
	}
	as.DgSession.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions

	return as
}

// #region - slash commands

func (as *AppState) AddAppCmdInfo(id string, info *discordgo.ApplicationCommand) {
	as.appCmdMu.Lock()
	defer as.appCmdMu.Unlock()
	if _, ok := as.appCmdInfo[id]; ok {
		slog.Warn("slash command info is overwritten", "id", id)
	}
	as.appCmdInfo[id] = info
}

func (as *AppState) AddAppCmdHandler(id string, handler AppCmdHandler) {
	as.appCmdMu.Lock()
	defer as.appCmdMu.Unlock()
	if _, ok := as.appCmdHandler[id]; ok {
		slog.Warn("slash command handler is overwritten", "id", id)
	}
	as.appCmdHandler[id] = handler
}

func (as *AppState) GetAppCmdHandler(id string) (AppCmdHandler, bool) {
	as.appCmdMu.RLock()
	defer as.appCmdMu.RUnlock()
	handler, ok := as.appCmdHandler[id]
	return handler, ok
}

func (as *AppState) IterateAppCmdInfo(f func(id string, info *discordgo.ApplicationCommand)) {
	as.appCmdMu.RLock()
	defer as.appCmdMu.RUnlock()
	for id, info := range as.appCmdInfo {
		f(id, info)
	}
}

// NukeAppCmdInfo drops the command definitions once they were sent to
// Discord, handlers are kept.
func (as *AppState) NukeAppCmdInfo() {
	as.appCmdMu.Lock()
	defer as.appCmdMu.Unlock()
	as.appCmdInfo = make(map[string]*discordgo.ApplicationCommand)
}

// #endregion

// #region - lifecycle

// CreateGracefulShutdownChan returns a channel that is closed when the app
// shuts down.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.shutdownMu.Lock()
	defer as.shutdownMu.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return &ch
}

// GracefulShutdown closes every shutdown channel, then the discord session
// and the database.
func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	for _, ch := range as.gracefulShutdownChans {
		close(ch)
	}
	as.gracefulShutdownChans = nil
	as.shutdownMu.Unlock()

	if as.DgSession != nil {
		if err := as.DgSession.Close(); err != nil {
			slog.Warn("can't close discord session", "error", err)
		}
	}
	if as.BunDB != nil {
		if err := as.BunDB.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
	}
}

func (as *AppState) GetUptime() time.Duration {
	return time.Since(as.startedAt).Round(time.Second)
}

// #endregion
