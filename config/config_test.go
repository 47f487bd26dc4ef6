package config

import (
	"testing"
	"time"

	"navi/model"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

func newViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{"bot_token": "tok"}))
	if err != nil {
		t.Fatalf("fromViper() error = %v", err)
	}
	want := &model.Config{
		BotToken:         "tok",
		DatabasePath:     DefaultDatabasePath,
		DeveloperUserIDs: []string{},
		AdminRoleIDs:     []string{},
		Download:         model.DownloadConfig{MaxBytes: DefaultDownloadMaxBytes, Timeout: DefaultDownloadTimeout},
		Immunity:         model.ImmunityConfig{Bots: true},
		Enforcement:      model.EnforcementConfig{MaskedNickname: DefaultMaskedNickname},
		Maintenance:      model.MaintenanceConfig{OptimizeSpec: "@daily", StatusSpec: "@every 6h"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("fromViper() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"bot_token":                 "tok",
		"developer_user_ids":        "1, 2,,3",
		"admin_role_ids":            []string{"r1,r2", "r3"},
		"download.max_bytes":        1024,
		"download.timeout":          "5s",
		"enforcement.jail_duration": "1h",
		"immunity.manage_messages":  true,
		"grpc.address":              "127.0.0.1:50051",
	}))
	if err != nil {
		t.Fatalf("fromViper() error = %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, cfg.DeveloperUserIDs); diff != "" {
		t.Errorf("DeveloperUserIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"r1", "r2", "r3"}, cfg.AdminRoleIDs); diff != "" {
		t.Errorf("AdminRoleIDs mismatch (-want +got):\n%s", diff)
	}
	if cfg.Download.MaxBytes != 1024 || cfg.Download.Timeout != 5*time.Second {
		t.Errorf("Download = %+v", cfg.Download)
	}
	if cfg.Enforcement.JailDuration != time.Hour {
		t.Errorf("JailDuration = %v, want 1h", cfg.Enforcement.JailDuration)
	}
	if !cfg.Immunity.ManageMessages {
		t.Error("Immunity.ManageMessages = false")
	}
	if cfg.GRPC.Address != "127.0.0.1:50051" {
		t.Errorf("GRPC.Address = %q", cfg.GRPC.Address)
	}
}

func TestFromViperRequiresToken(t *testing.T) {
	if _, err := fromViper(newViper(nil)); err == nil {
		t.Fatal("fromViper() without a token should fail")
	}
}

func TestFromViperClampsInvalidValues(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"bot_token":                   "tok",
		"download.max_bytes":          -1,
		"enforcement.masked_nickname": "",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Download.MaxBytes != DefaultDownloadMaxBytes {
		t.Errorf("MaxBytes = %d, want default", cfg.Download.MaxBytes)
	}
	if cfg.Enforcement.MaskedNickname != DefaultMaskedNickname {
		t.Errorf("MaskedNickname = %q, want default", cfg.Enforcement.MaskedNickname)
	}
}
