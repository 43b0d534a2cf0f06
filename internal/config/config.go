package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Tickets  TicketConfig
	Presence PresenceConfig
	Ops      OpsConfig
	Logger   LoggerConfig
}

// AppConfig carries process metadata.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// DiscordConfig identifies the bot, its guild and the privileged identities.
type DiscordConfig struct {
	Token                  string
	Prefix                 string
	GuildID                string
	OwnerID                string
	StaffRoleID            string
	MentionRoleID          string
	LogOpenChannelID       string
	LogTranscriptChannelID string
	SyncCommands           bool
}

// TicketConfig controls ticket channel behavior.
type TicketConfig struct {
	CategoryName          string
	Brand                 string
	BrandIconURL          string
	HistoryTimeoutSeconds int
	DeleteTimeoutSeconds  int
	CloseDelaySeconds     int
}

// PresenceConfig controls the rotating status line.
type PresenceConfig struct {
	Enabled         bool
	IntervalSeconds int
	StreamURL       string
}

// OpsConfig configures the operator HTTP listener.
type OpsConfig struct {
	Enabled         bool
	Host            string
	Port            string
	JWTSecret       string
	TokenTTLMinutes int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	prefix := getEnv("DISCORD_PREFIX", "!")
	if strings.ContainsAny(prefix, " \t") {
		return nil, fmt.Errorf("invalid DISCORD_PREFIX %q: must not contain whitespace", prefix)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "ticketbot"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:                  os.Getenv("DISCORD_TOKEN"),
			Prefix:                 prefix,
			GuildID:                getEnvAsID("DISCORD_GUILD_ID"),
			OwnerID:                getEnvAsID("DISCORD_OWNER_ID"),
			StaffRoleID:            getEnvAsID("DISCORD_STAFF_ROLE_ID"),
			MentionRoleID:          getEnvAsID("DISCORD_MENTION_ROLE_ID"),
			LogOpenChannelID:       getEnvAsID("DISCORD_LOG_OPEN_CHANNEL_ID"),
			LogTranscriptChannelID: getEnvAsID("DISCORD_LOG_TRANSCRIPT_CHANNEL_ID"),
			SyncCommands:           getEnvAsBool("DISCORD_SYNC_COMMANDS", true),
		},
		Tickets: TicketConfig{
			CategoryName:          getEnv("TICKET_CATEGORY_NAME", "Tickets"),
			Brand:                 getEnv("TICKET_BRAND", "KryptosMC"),
			BrandIconURL:          os.Getenv("TICKET_BRAND_ICON_URL"),
			HistoryTimeoutSeconds: getEnvAsInt("TICKET_HISTORY_TIMEOUT_SECONDS", 20),
			DeleteTimeoutSeconds:  getEnvAsInt("TICKET_DELETE_TIMEOUT_SECONDS", 10),
			CloseDelaySeconds:     getEnvAsInt("TICKET_CLOSE_DELAY_SECONDS", 2),
		},
		Presence: PresenceConfig{
			Enabled:         getEnvAsBool("PRESENCE_ENABLED", true),
			IntervalSeconds: getEnvAsInt("PRESENCE_INTERVAL_SECONDS", 30),
			StreamURL:       getEnv("PRESENCE_STREAM_URL", "https://www.twitch.tv/kryptosmc"),
		},
		Ops: OpsConfig{
			Enabled:         getEnvAsBool("OPS_ENABLED", true),
			Host:            getEnv("OPS_HOST", "127.0.0.1"),
			Port:            getEnv("OPS_PORT", "8081"),
			JWTSecret:       getEnv("OPS_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("OPS_TOKEN_TTL_MINUTES", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate checks the values required to connect to the gateway.
func (d DiscordConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Token) == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if d.GuildID == "" {
		errs = append(errs, errors.New("DISCORD_GUILD_ID is required"))
	}
	return errors.Join(errs...)
}

// Addr returns the ops HTTP bind address.
func (o OpsConfig) Addr() string {
	return fmt.Sprintf("%s:%s", o.Host, o.Port)
}

// HistoryTimeout bounds the transcript history fetch.
func (t TicketConfig) HistoryTimeout() time.Duration {
	return seconds(t.HistoryTimeoutSeconds)
}

// DeleteTimeout bounds channel deletion.
func (t TicketConfig) DeleteTimeout() time.Duration {
	return seconds(t.DeleteTimeoutSeconds)
}

// CloseDelay is the pause between the closure record and channel deletion.
func (t TicketConfig) CloseDelay() time.Duration {
	return seconds(t.CloseDelaySeconds)
}

// Interval returns the presence rotation period.
func (p PresenceConfig) Interval() time.Duration {
	if p.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return seconds(p.IntervalSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvAsID reads a snowflake id; "0" and non-numeric values mean unset.
func getEnvAsID(key string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" || val == "0" {
		return ""
	}
	if _, err := strconv.ParseUint(val, 10, 64); err != nil {
		return ""
	}
	return val
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
