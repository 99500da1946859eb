package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load decodes the TOML file at path over Defaults, loads .env if present,
// and applies environment overrides. A missing file is not an error so the
// copier can run from the environment alone. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose environment variable is set and
// non-empty. Bare names are the original deployment's variables; the
// POLYCOPY_* form is applied after and wins.
func applyEnvOverrides(cfg *Config) {
	// ── Compatibility ──
	setStr(&cfg.Copy.TargetAddress, "USER_ADDRESS")
	setStr(&cfg.Copy.FollowerAddress, "PROXY_WALLET")
	setInt(&cfg.Copy.PollIntervalSeconds, "FETCH_INTERVAL")
	setFloat64(&cfg.Copy.MaxAgeHours, "TOO_OLD_TIMESTAMP")
	setInt(&cfg.Copy.RetryLimit, "RETRY_LIMIT")

	// ── Copy ──
	setStr(&cfg.Copy.TargetAddress, "POLYCOPY_COPY_TARGET_ADDRESS")
	setStr(&cfg.Copy.FollowerAddress, "POLYCOPY_COPY_FOLLOWER_ADDRESS")
	setInt(&cfg.Copy.PollIntervalSeconds, "POLYCOPY_COPY_POLL_INTERVAL_SECONDS")
	setFloat64(&cfg.Copy.MaxAgeHours, "POLYCOPY_COPY_MAX_AGE_HOURS")
	setInt(&cfg.Copy.RetryLimit, "POLYCOPY_COPY_RETRY_LIMIT")
	setInt(&cfg.Copy.FeedLimit, "POLYCOPY_COPY_FEED_LIMIT")
	setDuration(&cfg.Copy.BatchWindow, "POLYCOPY_COPY_BATCH_WINDOW")
	setDuration(&cfg.Copy.BatchPollInterval, "POLYCOPY_COPY_BATCH_POLL_INTERVAL")
	setFloat64(&cfg.Copy.RatioAmplification, "POLYCOPY_COPY_RATIO_AMPLIFICATION")
	setFloat64(&cfg.Copy.SlippageTolerance, "POLYCOPY_COPY_SLIPPAGE_TOLERANCE")
	setFloat64(&cfg.Copy.MinOrderNotional, "POLYCOPY_COPY_MIN_ORDER_NOTIONAL")
	setInt(&cfg.Copy.Fee15mBps, "POLYCOPY_COPY_FEE_15M_BPS")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "POLYCOPY_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "POLYCOPY_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "POLYCOPY_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.DataHost, "POLYCOPY_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "POLYCOPY_POLYMARKET_CLOB_HOST")
	setInt(&cfg.Polymarket.ChainID, "POLYCOPY_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "POLYCOPY_POLYMARKET_SIGNATURE_TYPE")
	setStr(&cfg.Polymarket.Exchange, "POLYCOPY_POLYMARKET_EXCHANGE")
	setStr(&cfg.Polymarket.NegRiskExchange, "POLYCOPY_POLYMARKET_NEG_RISK_EXCHANGE")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "POLYCOPY_CHAIN_RPC_URL")
	setStr(&cfg.Chain.CollateralToken, "POLYCOPY_CHAIN_COLLATERAL_TOKEN")
	setInt(&cfg.Chain.CollateralDecimals, "POLYCOPY_CHAIN_COLLATERAL_DECIMALS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POLYCOPY_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POLYCOPY_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYCOPY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYCOPY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYCOPY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYCOPY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYCOPY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYCOPY_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYCOPY_POSTGRES_POOL_MAX_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYCOPY_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYCOPY_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYCOPY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYCOPY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYCOPY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYCOPY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYCOPY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYCOPY_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.StreamPrefix, "POLYCOPY_REDIS_STREAM_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYCOPY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYCOPY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYCOPY_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYCOPY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYCOPY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYCOPY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYCOPY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYCOPY_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "POLYCOPY_S3_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYCOPY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYCOPY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYCOPY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYCOPY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYCOPY_MODE")
	setStr(&cfg.LogLevel, "POLYCOPY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the variable is
// present, non-empty and parses.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var cleaned []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) > 0 {
		*dst = cleaned
	}
}
