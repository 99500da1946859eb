package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

const (
	target   = "0x1111111111111111111111111111111111111111"
	follower = "0x2222222222222222222222222222222222222222"
)

func TestLoadDecodesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polycopy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "paper"

[copy]
target_address = "`+target+`"
follower_address = "`+follower+`"
batch_window = "1.5s"
retry_limit = 5

[notify]
events = ["trade_filled"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsPaper())
	assert.Equal(t, target, cfg.Copy.TargetAddress)
	assert.Equal(t, 1500*time.Millisecond, cfg.Copy.BatchWindow.Duration)
	assert.Equal(t, 5, cfg.Copy.RetryLimit)
	assert.Equal(t, []string{"trade_filled"}, cfg.Notify.Events)

	// Untouched keys keep their defaults.
	assert.Equal(t, 150*time.Millisecond, cfg.Copy.BatchPollInterval.Duration)
	assert.Equal(t, 30.0, cfg.Copy.RatioAmplification)
	assert.Equal(t, time.Hour, cfg.Copy.MaxAge())
	assert.Equal(t, time.Second, cfg.Copy.PollInterval())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("USER_ADDRESS", target)
	t.Setenv("PROXY_WALLET", follower)
	t.Setenv("FETCH_INTERVAL", "4")
	t.Setenv("TOO_OLD_TIMESTAMP", "0.5")
	t.Setenv("RETRY_LIMIT", "2")
	t.Setenv("POLYCOPY_COPY_RETRY_LIMIT", "7")
	t.Setenv("POLYCOPY_COPY_BATCH_WINDOW", "250ms")
	t.Setenv("POLYCOPY_NOTIFY_EVENTS", "trade_aborted, ,trade_partial")
	t.Setenv("POLYCOPY_MODE", "paper")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, target, cfg.Copy.TargetAddress)
	assert.Equal(t, follower, cfg.Copy.FollowerAddress)
	assert.Equal(t, 4*time.Second, cfg.Copy.PollInterval())
	assert.Equal(t, 30*time.Minute, cfg.Copy.MaxAge())
	assert.Equal(t, 7, cfg.Copy.RetryLimit, "prefixed variable wins over the alias")
	assert.Equal(t, 250*time.Millisecond, cfg.Copy.BatchWindow.Duration)
	assert.Equal(t, []string{"trade_aborted", "trade_partial"}, cfg.Notify.Events)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Defaults()
		c.Copy.TargetAddress = target
		c.Copy.FollowerAddress = follower
		c.Wallet.PrivateKey = "0xabc"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid live", func(*Config) {}, ""},
		{"paper needs no key", func(c *Config) { c.Mode = "paper"; c.Wallet.PrivateKey = "" }, ""},
		{"live needs key", func(c *Config) { c.Wallet.PrivateKey = "" }, "private_key or encrypted_key_path"},
		{"key file needs password", func(c *Config) { c.Wallet.PrivateKey = ""; c.Wallet.EncryptedKeyPath = "k.json" }, "key_password"},
		{"bad address", func(c *Config) { c.Copy.TargetAddress = "bob" }, "not a hex address"},
		{"retry limit", func(c *Config) { c.Copy.RetryLimit = 0 }, "retry_limit"},
		{"slippage", func(c *Config) { c.Copy.SlippageTolerance = 1 }, "slippage_tolerance"},
		{"mode", func(c *Config) { c.Mode = "full" }, "unknown mode"},
		{"postgres only when enabled", func(c *Config) { c.Postgres.PoolMaxConns = 0 }, ""},
		{"postgres enabled", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.PoolMaxConns = 0 }, "pool_max_conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMissingAddresses(t *testing.T) {
	c := Defaults()
	c.Mode = "paper"
	err := c.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingAddress)
	assert.Contains(t, err.Error(), "target_address")
	assert.Contains(t, err.Error(), "follower_address")
}

func TestRedactedConfig(t *testing.T) {
	c := Defaults()
	c.Wallet.PrivateKey = "secret"
	c.Notify.DiscordWebhookURL = "https://discord/hook"

	r := RedactedConfig(&c)
	assert.Equal(t, "***", r.Wallet.PrivateKey)
	assert.Equal(t, "***", r.Notify.DiscordWebhookURL)
	assert.Empty(t, r.Wallet.KeyPassword)
	assert.Equal(t, "secret", c.Wallet.PrivateKey)

	r.Notify.Events[0] = "changed"
	assert.NotEqual(t, "changed", c.Notify.Events[0])
}
