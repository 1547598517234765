package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string           `yaml:"discord_token"`
	GuildID       string           `yaml:"guild_id"`
	DatabasePath  string           `yaml:"database_path"`
	LogLevel      string           `yaml:"log_level"`
	HTTPAddr      string           `yaml:"http_addr"`
	ModLogChannel string           `yaml:"mod_log_channel"`
	AutoMod       AutoModConfig    `yaml:"automod"`
	Classifier    ClassifierConfig `yaml:"classifier"`
	Actions       ActionConfig     `yaml:"actions"`
	Notifications NotifyConfig     `yaml:"notifications"`
}

type AutoModConfig struct {
	Enabled   bool `yaml:"enabled"`
	CacheSize int  `yaml:"cache_size"`
}

type ClassifierConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type ActionConfig struct {
	// BanReasonIncludesActor appends the moderator's name to the reason
	// sent with the platform ban call.
	BanReasonIncludesActor bool `yaml:"ban_reason_includes_actor"`
}

type NotifyConfig struct {
	DailySummary bool        `yaml:"daily_summary"`
	EmbedColors  EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/guildwatch.db",
		LogLevel:      "info",
		HTTPAddr:      ":8080",
		ModLogChannel: "mod-log",
		AutoMod:       AutoModConfig{Enabled: true, CacheSize: 1024},
		Classifier:    ClassifierConfig{TimeoutSeconds: 10, MaxRetries: 2},
		Actions:       ActionConfig{BanReasonIncludesActor: true},
		Notifications: NotifyConfig{
			DailySummary: true,
			EmbedColors: EmbedColors{
				Action:  0x22C55E,
				Warning: 0xF59E0B,
				Error:   0xEF4444,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.GuildID == "" {
		return Config{}, errors.New("GUILD_ID is required")
	}
	if cfg.AutoMod.Enabled && cfg.Classifier.URL == "" {
		return Config{}, errors.New("CLASSIFIER_URL is required when automod is enabled")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPAddr = envString("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ModLogChannel = envString("MOD_LOG_CHANNEL", cfg.ModLogChannel)
	cfg.AutoMod.Enabled = envBool("AUTOMOD_ENABLED", cfg.AutoMod.Enabled)
	cfg.AutoMod.CacheSize = envInt("AUTOMOD_CACHE_SIZE", cfg.AutoMod.CacheSize)
	cfg.Classifier.URL = envString("CLASSIFIER_URL", cfg.Classifier.URL)
	cfg.Classifier.Token = envString("CLASSIFIER_TOKEN", cfg.Classifier.Token)
	cfg.Classifier.TimeoutSeconds = envInt("CLASSIFIER_TIMEOUT_SECONDS", cfg.Classifier.TimeoutSeconds)
	cfg.Classifier.MaxRetries = envInt("CLASSIFIER_MAX_RETRIES", cfg.Classifier.MaxRetries)
	cfg.Actions.BanReasonIncludesActor = envBool("BAN_REASON_INCLUDES_ACTOR", cfg.Actions.BanReasonIncludesActor)
	cfg.Notifications.DailySummary = envBool("DAILY_SUMMARY", cfg.Notifications.DailySummary)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
