package utils

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	port string

	discordAppToken string
	discordClientId string
	discordGuildID  string

	location     *time.Location
	databasePath string
	logLevel     slog.Level

	adminDelete bool

	availableEmoji   string
	unavailableEmoji string
	tentativeEmoji   string
	deleteEmoji      string
	rsvpExclusive    []string

	fireRetryAttempts        uint64
	metricCollectionInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),

		discordAppToken: func() string {
			discordAppToken := os.Getenv("DISCORD_APP_TOKEN")
			if len(discordAppToken) < 3 {
				slog.Error("DISCORD_APP_TOKEN is not set")
				os.Exit(1)
			}
			slog.Debug("env", "DISCORD_APP_TOKEN", discordAppToken[0:3]+"...")
			return discordAppToken
		}(),
		discordClientId: func() string {
			discordClientId := os.Getenv("DISCORD_CLIENT_ID")
			if discordClientId == "" {
				slog.Error("DISCORD_CLIENT_ID is not set")
				os.Exit(1)
			}
			slog.Debug("env", "DISCORD_CLIENT_ID", discordClientId)
			return discordClientId
		}(),
		discordGuildID: func() string {
			// blank registers the slash commands globally
			discordGuildID := os.Getenv("DISCORD_GUILD_ID")
			slog.Debug("env", "DISCORD_GUILD_ID", discordGuildID)
			return discordGuildID
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		databasePath: func() string {
			databasePath := os.Getenv("DATABASE_PATH")
			if databasePath == "" {
				databasePath = "./events.sqlite"
			}
			slog.Debug("env", "DATABASE_PATH", databasePath)
			return databasePath
		}(),
		logLevel: ParseLogLevel(os.Getenv("LOG_LEVEL")),

		adminDelete: func() bool {
			adminDelete := envBool("ADMIN_DELETE", false)
			slog.Debug("env", "ADMIN_DELETE", adminDelete)
			return adminDelete
		}(),

		availableEmoji:   envString("RSVP_AVAILABLE_EMOJI", "✅"),
		unavailableEmoji: envString("RSVP_UNAVAILABLE_EMOJI", "❌"),
		tentativeEmoji:   envString("RSVP_TENTATIVE_EMOJI", "❔"),
		deleteEmoji:      envString("DELETE_EMOJI", "🗑️"),
		rsvpExclusive: func() []string {
			rsvpExclusive := ParseList(envString("RSVP_EXCLUSIVE", "available,unavailable,tentative"))
			slog.Debug("env", "RSVP_EXCLUSIVE", rsvpExclusive)
			return rsvpExclusive
		}(),

		fireRetryAttempts: func() uint64 {
			raw := envString("FIRE_RETRY_ATTEMPTS", "3")
			attempts, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				slog.Error("invalid FIRE_RETRY_ATTEMPTS", "value", raw, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "FIRE_RETRY_ATTEMPTS", attempts)
			return attempts
		}(),
		metricCollectionInterval: func() time.Duration {
			raw := envString("METRIC_COLLECTION_INTERVAL", "15s")
			duration, err := time.ParseDuration(raw)
			if err != nil || duration <= 0 {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "value", raw, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", duration)
			return duration
		}(),
	}
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid boolean env, using fallback", "key", key, "value", raw, "fallback", fallback)
		return fallback
	}
	return value
}

// ParseList splits a comma separated list, dropping blanks and lowercasing.
func ParseList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseLogLevel maps LOG_LEVEL to a slog level, defaulting to debug.
func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DISCORD_APP_TOKEN env
func (c *Config) GetDiscordAppToken() string {
	return c.discordAppToken
}

// Get DISCORD_CLIENT_ID env
func (c *Config) GetDiscordClientId() string {
	return c.discordClientId
}

// Get DISCORD_GUILD_ID env
func (c *Config) GetDiscordGuildID() string {
	return c.discordGuildID
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get DATABASE_PATH env, default to ./events.sqlite
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get LOG_LEVEL env
func (c *Config) GetLogLevel() slog.Level {
	return c.logLevel
}

// Get ADMIN_DELETE env
func (c *Config) GetAdminDelete() bool {
	return c.adminDelete
}

// Get RSVP_AVAILABLE_EMOJI env
func (c *Config) GetAvailableEmoji() string {
	return c.availableEmoji
}

// Get RSVP_UNAVAILABLE_EMOJI env
func (c *Config) GetUnavailableEmoji() string {
	return c.unavailableEmoji
}

// Get RSVP_TENTATIVE_EMOJI env
func (c *Config) GetTentativeEmoji() string {
	return c.tentativeEmoji
}

// Get DELETE_EMOJI env
func (c *Config) GetDeleteEmoji() string {
	return c.deleteEmoji
}

// Get RSVP_EXCLUSIVE env
func (c *Config) GetRSVPExclusive() []string {
	return c.rsvpExclusive
}

// Get FIRE_RETRY_ATTEMPTS env
func (c *Config) GetFireRetryAttempts() uint64 {
	return c.fireRetryAttempts
}

// Get METRIC_COLLECTION_INTERVAL env
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}
