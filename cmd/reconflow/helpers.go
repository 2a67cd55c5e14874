package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/reconflow/reconflow/internal/mailbox"
	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/storage"
)

// initStore opens the configured database and applies migrations.
func initStore(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/reconflow/reconflow.db"
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// mailboxConfig reads the mailbox client settings.
func mailboxConfig() mailbox.Config {
	interval := viper.GetDuration("mailbox.min_request_interval")
	if interval == 0 {
		interval = 250 * time.Millisecond
	}
	return mailbox.Config{
		CredentialsPath:    expandPath(viper.GetString("mailbox.credentials")),
		TokenPath:          expandPath(defaultString(viper.GetString("mailbox.token"), "$HOME/.config/reconflow/token.json")),
		MinRequestInterval: interval,
	}
}

// loadThresholds returns the configured confidence thresholds, falling
// back to the production defaults.
func loadThresholds() matcher.Thresholds {
	th := matcher.DefaultThresholds()
	if v := viper.GetFloat64("thresholds.partner_auto_apply"); v > 0 {
		th.PartnerAutoApply = v
	}
	if v := viper.GetFloat64("thresholds.file_auto_connect"); v > 0 {
		th.FileAutoConnect = v
	}
	if v := viper.GetFloat64("thresholds.category_auto_apply"); v > 0 {
		th.CategoryAutoApply = v
	}
	return th
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
