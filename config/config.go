package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"navi/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultDatabasePath     = "data/navi.db"
	DefaultDownloadMaxBytes = 24 * 1024 * 1024
	DefaultDownloadTimeout  = 20 * time.Second
	DefaultMaskedNickname   = "filtered name"
)

// Load loads the configuration from a .env file, config.yaml and environment variables.
// Environment variables override values from the file; keys use '_' in place of '.'.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./data")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Println("Info: config.yaml not found, using environment variables and defaults")
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("download.max_bytes", DefaultDownloadMaxBytes)
	v.SetDefault("download.timeout", DefaultDownloadTimeout)
	v.SetDefault("immunity.manage_messages", false)
	v.SetDefault("immunity.bots", true)
	v.SetDefault("enforcement.jail_duration", time.Duration(0))
	v.SetDefault("enforcement.masked_nickname", DefaultMaskedNickname)
	v.SetDefault("maintenance.optimize_spec", "@daily")
	v.SetDefault("maintenance.status_spec", "@every 6h")
	v.SetDefault("grpc.address", "")

	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("bot_token", "")
	v.SetDefault("log_channel_id", "")
	v.SetDefault("developer_user_ids", []string{})
	v.SetDefault("admin_role_ids", []string{})
}

func fromViper(v *viper.Viper) (*model.Config, error) {
	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Comma separated lists coming from the environment arrive as a single string.
	cfg.DeveloperUserIDs = splitList(v.GetStringSlice("developer_user_ids"))
	cfg.AdminRoleIDs = splitList(v.GetStringSlice("admin_role_ids"))

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	if cfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, global log relay will be disabled")
	}
	if cfg.Download.MaxBytes <= 0 {
		cfg.Download.MaxBytes = DefaultDownloadMaxBytes
	}
	if cfg.Download.Timeout <= 0 {
		cfg.Download.Timeout = DefaultDownloadTimeout
	}
	if cfg.Enforcement.MaskedNickname == "" {
		cfg.Enforcement.MaskedNickname = DefaultMaskedNickname
	}
	return &cfg, nil
}

func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
