package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables (FLOORBOARD_ prefix,
// dots become underscores) with an optional floorboard.yaml alongside the
// binary. Environment variables take precedence over file values.
func Load() (*Config, error) {
	v := viper.New()

	// Every key needs a default (empty for credentials and ids) so viper
	// knows it and AutomaticEnv can override it during Unmarshal.
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("database.url", "")
	v.SetDefault("monday.api_url", "https://api.monday.com/v2")
	v.SetDefault("monday.api_token", "")
	v.SetDefault("monday.board_id", "")
	v.SetDefault("monday.status_column_id", "")
	v.SetDefault("monday.checked_in_column_id", "")
	v.SetDefault("monday.timeout", "15s")
	v.SetDefault("monday.subitem_column_ids", []string{"dropdown_mkr73m5s", "text_mkr31cjs"})
	v.SetDefault("scanner.secret", "change-me")
	v.SetDefault("scanner.stage1_label", "Checked In")
	v.SetDefault("scanner.stage2_label", "In Production")
	v.SetDefault("scanner.stage3_label", "Completed")
	v.SetDefault("scanner.token_max_age", "0s")
	v.SetDefault("scanner.reconcile_interval", "0s")
	v.SetDefault("board.page_limit", 50)
	v.SetDefault("board.max_pages", 2)
	v.SetDefault("board.cache_ttl", "5m")
	v.SetDefault("board.fetch_timeout", "30s")
	v.SetDefault("board.retry_attempts", 3)

	v.SetConfigName("floorboard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLOORBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A present-but-broken config file is fatal; a missing one is not.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
