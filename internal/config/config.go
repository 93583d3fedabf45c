package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App        AppConfig
	Telegram   TelegramConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Tickets    TicketsConfig
	Chat       ChatConfig
	Privileges map[string]PrivilegeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name string
	Env  string
	Host string
	Port string
}

// TelegramConfig holds bot transport settings.
type TelegramConfig struct {
	Token         string
	AdminIDs      []int64
	ChannelID     int64
	WebhookURL    string
	WebhookSecret string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TicketsConfig governs claim policy.
type TicketsConfig struct {
	// AllowReassign lets a second admin take over a ticket that another
	// admin already claimed (last claim wins). Matches the source policy.
	AllowReassign bool
}

// ChatConfig governs live-chat session behavior.
type ChatConfig struct {
	// InviteTTL bounds how long a pending chat invitation stays valid.
	// Zero disables the timeout: an invitation persists until explicitly
	// declined or superseded.
	InviteTTL time.Duration
	// SessionTTL is the housekeeping expiry on conversation-context
	// entries. Kept long so it never cuts an active chat; recovery
	// rehydrates expired admin sessions from ticket state.
	SessionTTL time.Duration
	// TempMessageTTL is how long transient confirmations stay on screen.
	TempMessageTTL time.Duration
}

// PrivilegeConfig describes one seller tier.
type PrivilegeConfig struct {
	Label           string
	Price           int
	CooldownMinutes int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	adminIDs, err := parseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	channelID, _ := strconv.ParseInt(os.Getenv("CHANNEL_ID"), 10, 64)

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "baraholka-bot"),
			Env:  getEnv("APP_ENV", "development"),
			Host: getEnv("APP_HOST", "0.0.0.0"),
			Port: getEnv("APP_PORT", "8080"),
		},
		Telegram: TelegramConfig{
			Token:         token,
			AdminIDs:      adminIDs,
			ChannelID:     channelID,
			WebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tickets: TicketsConfig{
			AllowReassign: getEnvAsBool("TICKETS_ALLOW_REASSIGN", true),
		},
		Chat: ChatConfig{
			InviteTTL:      time.Duration(getEnvAsInt("CHAT_INVITE_TTL_MINUTES", 0)) * time.Minute,
			SessionTTL:     time.Duration(getEnvAsInt("CHAT_SESSION_TTL_HOURS", 24)) * time.Hour,
			TempMessageTTL: time.Duration(getEnvAsInt("CHAT_TEMP_MESSAGE_TTL_SECONDS", 3)) * time.Second,
		},
		Privileges: defaultPrivileges(),
	}

	return cfg, nil
}

// defaultPrivileges returns the built-in tier table. The cooldowns gate
// posting per tier and the names feed the grant keyboard; a tier missing
// here cannot be granted.
func defaultPrivileges() map[string]PrivilegeConfig {
	return map[string]PrivilegeConfig{
		"user":         {Label: "User", Price: 0, CooldownMinutes: 60},
		"vip":          {Label: "VIP", Price: 50, CooldownMinutes: 40},
		"premium":      {Label: "PREMIUM", Price: 120, CooldownMinutes: 30},
		"god":          {Label: "GOD", Price: 500, CooldownMinutes: 20},
		"ultra_seller": {Label: "ULTRA SELLER", Price: 1500, CooldownMinutes: 10},
	}
}

// IsAdmin reports whether the given chat id belongs to an administrator.
func (t TelegramConfig) IsAdmin(chatID int64) bool {
	for _, id := range t.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// parseAdminIDs accepts comma, semicolon or whitespace separated id lists;
// non-numeric tokens are rejected rather than skipped so a typo in the env
// fails loudly at boot.
func parseAdminIDs(raw string) ([]int64, error) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if raw == "" {
		return nil, nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad admin id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
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
