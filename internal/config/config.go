// Package config defines the copier's configuration and its validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Config is the root configuration. Fields come from a TOML file and are then
// overridden by POLYCOPY_* environment variables.
type Config struct {
	Copy       CopyConfig       `toml:"copy"`
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Chain      ChainConfig      `toml:"chain"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// CopyConfig names the two wallets and tunes the poll loop and executor.
type CopyConfig struct {
	TargetAddress       string   `toml:"target_address"`
	FollowerAddress     string   `toml:"follower_address"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	MaxAgeHours         float64  `toml:"max_age_hours"`
	RetryLimit          int      `toml:"retry_limit"`
	FeedLimit           int      `toml:"feed_limit"`
	BatchWindow         duration `toml:"batch_window"`
	BatchPollInterval   duration `toml:"batch_poll_interval"`
	RatioAmplification  float64  `toml:"ratio_amplification"`
	SlippageTolerance   float64  `toml:"slippage_tolerance"`
	MinOrderNotional    float64  `toml:"min_order_notional"`
	Fee15mBps           int      `toml:"fee_15m_bps"`
}

// PollInterval is the pause between poll cycles.
func (c CopyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MaxAge is the oldest activity the copier will still mirror.
func (c CopyConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours * float64(time.Hour))
}

// WalletConfig holds the follower's signing key.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds API endpoints and order-signing parameters.
type PolymarketConfig struct {
	DataHost        string `toml:"data_host"`
	ClobHost        string `toml:"clob_host"`
	ChainID         int    `toml:"chain_id"`
	SignatureType   int    `toml:"signature_type"`
	Exchange        string `toml:"exchange"`
	NegRiskExchange string `toml:"neg_risk_exchange"`
}

// ChainConfig points at the Polygon RPC used for collateral balances.
type ChainConfig struct {
	RPCURL             string `toml:"rpc_url"`
	CollateralToken    string `toml:"collateral_token"`
	CollateralDecimals int    `toml:"collateral_decimals"`
}

// PostgresConfig holds the execution journal's connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the event stream parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamPrefix string `toml:"stream_prefix"`
}

// S3Config holds the session archive's object store parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// NotifyConfig holds alert channel credentials and the event allow list.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Enabled reports whether any alert channel is configured.
func (n NotifyConfig) Enabled() bool {
	return (n.TelegramToken != "" && n.TelegramChatID != "") || n.DiscordWebhookURL != ""
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "900ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the production defaults.
func Defaults() Config {
	return Config{
		Copy: CopyConfig{
			PollIntervalSeconds: 1,
			MaxAgeHours:         1,
			RetryLimit:          3,
			FeedLimit:           100,
			BatchWindow:         duration{900 * time.Millisecond},
			BatchPollInterval:   duration{150 * time.Millisecond},
			RatioAmplification:  30,
			SlippageTolerance:   0.03,
			MinOrderNotional:    1,
			Fee15mBps:           1000,
		},
		Polymarket: PolymarketConfig{
			DataHost:        "https://data-api.polymarket.com",
			ClobHost:        "https://clob.polymarket.com",
			ChainID:         137,
			SignatureType:   2,
			Exchange:        "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
			NegRiskExchange: "0xC5d563A36AE78145C45a50134d48A1215220f80a",
		},
		Chain: ChainConfig{
			RPCURL:             "https://polygon-rpc.com",
			CollateralToken:    "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			CollateralDecimals: 6,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			StreamPrefix: "polycopy",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polycopy",
			ForcePathStyle: true,
			Prefix:         "polycopy/sessions",
		},
		Notify: NotifyConfig{
			Events: []string{"trade_partial", "trade_aborted", "trade_exhausted"},
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"live":  true,
	"paper": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// IsPaper reports whether orders are simulated.
func (c *Config) IsPaper() bool {
	return strings.EqualFold(c.Mode, "paper")
}

// Validate checks every section and returns all problems at once. A missing
// target or follower address matches domain.ErrMissingAddress.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: live, paper)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	// Copy
	for _, a := range []struct{ name, value string }{
		{"target_address", c.Copy.TargetAddress},
		{"follower_address", c.Copy.FollowerAddress},
	} {
		switch {
		case strings.TrimSpace(a.value) == "":
			add("copy: %s: %w", a.name, domain.ErrMissingAddress)
		case !common.IsHexAddress(a.value):
			add("copy: %s %q is not a hex address", a.name, a.value)
		}
	}
	if c.Copy.PollIntervalSeconds < 1 {
		add("copy: poll_interval_seconds must be >= 1")
	}
	if c.Copy.MaxAgeHours <= 0 {
		add("copy: max_age_hours must be > 0")
	}
	if c.Copy.RetryLimit < 1 {
		add("copy: retry_limit must be >= 1")
	}
	if c.Copy.FeedLimit < 1 {
		add("copy: feed_limit must be >= 1")
	}
	if c.Copy.BatchWindow.Duration < 0 || c.Copy.BatchPollInterval.Duration <= 0 {
		add("copy: batch_window must be >= 0 and batch_poll_interval > 0")
	}
	if c.Copy.RatioAmplification <= 0 {
		add("copy: ratio_amplification must be > 0")
	}
	if c.Copy.SlippageTolerance < 0 || c.Copy.SlippageTolerance >= 1 {
		add("copy: slippage_tolerance must be in [0, 1)")
	}
	if c.Copy.MinOrderNotional < 0 {
		add("copy: min_order_notional must be >= 0")
	}
	if c.Copy.Fee15mBps < 0 {
		add("copy: fee_15m_bps must be >= 0")
	}

	// Wallet is only needed to sign live orders.
	if !c.IsPaper() {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			add("wallet: either private_key or encrypted_key_path must be set for live mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			add("wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Polymarket
	if c.Polymarket.DataHost == "" || c.Polymarket.ClobHost == "" {
		add("polymarket: data_host and clob_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		add("polymarket: chain_id must be positive")
	}
	if c.Polymarket.SignatureType < 0 || c.Polymarket.SignatureType > 2 {
		add("polymarket: signature_type must be 0 (EOA), 1 (proxy) or 2 (Safe), got %d", c.Polymarket.SignatureType)
	}
	if !common.IsHexAddress(c.Polymarket.Exchange) || !common.IsHexAddress(c.Polymarket.NegRiskExchange) {
		add("polymarket: exchange and neg_risk_exchange must be hex addresses")
	}

	// Chain
	if c.Chain.RPCURL == "" {
		add("chain: rpc_url must not be empty")
	}
	if !common.IsHexAddress(c.Chain.CollateralToken) {
		add("chain: collateral_token must be a hex address")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" && c.Postgres.Host == "" {
			add("postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		add("redis: addr must not be empty")
	}
	if c.S3.Enabled && (c.S3.Bucket == "" || c.S3.Region == "") {
		add("s3: bucket and region must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}
