package model

import "time"

// DownloadConfig bounds attachment downloads used by content filters.
type DownloadConfig struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ImmunityConfig controls role-based filter immunity.
type ImmunityConfig struct {
	ManageMessages bool `mapstructure:"manage_messages"`
	Bots           bool `mapstructure:"bots"`
}

// EnforcementConfig tunes the enforcement pipeline.
type EnforcementConfig struct {
	// JailDuration schedules an automatic unjail when positive.
	JailDuration   time.Duration `mapstructure:"jail_duration"`
	MaskedNickname string        `mapstructure:"masked_nickname"`
}

// MaintenanceConfig holds cron specs for housekeeping jobs.
type MaintenanceConfig struct {
	OptimizeSpec string `mapstructure:"optimize_spec"`
	StatusSpec   string `mapstructure:"status_spec"`
}

// GRPCConfig configures the admin gRPC listener. An empty address disables it.
type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

// Config holds the application configuration.
type Config struct {
	BotToken         string            `mapstructure:"bot_token"`
	DatabasePath     string            `mapstructure:"database_path"`
	LogChannelID     string            `mapstructure:"log_channel_id"`
	DeveloperUserIDs []string          `mapstructure:"developer_user_ids"`
	AdminRoleIDs     []string          `mapstructure:"admin_role_ids"`
	Download         DownloadConfig    `mapstructure:"download"`
	Immunity         ImmunityConfig    `mapstructure:"immunity"`
	Enforcement      EnforcementConfig `mapstructure:"enforcement"`
	Maintenance      MaintenanceConfig `mapstructure:"maintenance"`
	GRPC             GRPCConfig        `mapstructure:"grpc"`
}
