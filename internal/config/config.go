package config

import "time"

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Monday   MondayConfig   `mapstructure:"monday"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Board    BoardConfig    `mapstructure:"board"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	LogLevel   string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
	// PublicBaseURL overrides the scheme+host used when minting scan URLs.
	// Empty means derive it from the incoming request host.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// MondayConfig covers the external board API. APIToken may be empty at boot
// when an external OAuth component supplies the credential later.
type MondayConfig struct {
	APIURL            string        `mapstructure:"api_url" validate:"required,url"`
	APIToken          string        `mapstructure:"api_token"`
	BoardID           string        `mapstructure:"board_id" validate:"required"`
	StatusColumnID    string        `mapstructure:"status_column_id"`
	CheckedInColumnID string        `mapstructure:"checked_in_column_id"`
	SubitemColumnIDs  []string      `mapstructure:"subitem_column_ids"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"required"`
}

type ScannerConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
	// TokenMaxAge bounds how old a signed scan token may be. Zero keeps
	// already-printed codes valid indefinitely.
	TokenMaxAge       time.Duration `mapstructure:"token_max_age"`
	Stage1Label       string        `mapstructure:"stage1_label" validate:"required"`
	Stage2Label       string        `mapstructure:"stage2_label" validate:"required"`
	Stage3Label       string        `mapstructure:"stage3_label" validate:"required"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

type BoardConfig struct {
	PageLimit     int           `mapstructure:"page_limit" validate:"required,gt=0"`
	MaxPages      int           `mapstructure:"max_pages"  validate:"required,gt=0"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" validate:"required"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=0"`
}
