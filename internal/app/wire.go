package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/polycopy/internal/blob/s3"
	"github.com/alanyoungcy/polycopy/internal/cache/redis"
	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/executor"
	"github.com/alanyoungcy/polycopy/internal/notify"
	"github.com/alanyoungcy/polycopy/internal/platform/polymarket"
	"github.com/alanyoungcy/polycopy/internal/store/postgres"
)

// Dependencies bundles the collaborators the copier runs on. Wire builds it
// and the returned cleanup tears it down.
type Dependencies struct {
	Data     *polymarket.DataClient
	Clob     *polymarket.ClobClient
	Balances *polymarket.BalanceClient
	Orders   executor.OrderSubmitter

	// Recorder receives every execution record; it is never nil.
	Recorder *fanout
	Notifier *notify.Notifier
}

// Wire constructs the adapters and sinks named by cfg. runID and started
// name the session archive object.
func Wire(ctx context.Context, cfg *config.Config, runID string, started time.Time, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		Data:     polymarket.NewDataClient(cfg.Polymarket.DataHost),
		Recorder: &fanout{},
	}

	// --- Chain ---
	balances, err := polymarket.DialBalanceClient(ctx, cfg.Chain.RPCURL, cfg.Chain.CollateralToken, int32(cfg.Chain.CollateralDecimals))
	if err != nil {
		return fail(fmt.Errorf("wire: chain: %w", err))
	}
	closers = append(closers, balances.Close)
	deps.Balances = balances

	// --- Exchange ---
	clobCfg := polymarket.ClobConfig{
		BaseURL:         cfg.Polymarket.ClobHost,
		Funder:          cfg.Copy.FollowerAddress,
		SignatureType:   cfg.Polymarket.SignatureType,
		Exchange:        cfg.Polymarket.Exchange,
		NegRiskExchange: cfg.Polymarket.NegRiskExchange,
	}
	if cfg.IsPaper() {
		deps.Clob = polymarket.NewClobClient(clobCfg, nil, nil)
		deps.Orders = executor.NewPaperSubmitter(logger)
	} else {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: wallet: %w", err))
		}
		signer, err := crypto.NewSigner(key, int64(cfg.Polymarket.ChainID))
		if err != nil {
			return fail(fmt.Errorf("wire: signer: %w", err))
		}
		deps.Clob = polymarket.NewClobClient(clobCfg, signer, nil)
		auth, err := deps.Clob.DeriveAPIKey(ctx)
		if err != nil {
			return fail(fmt.Errorf("wire: clob credentials: %w", err))
		}
		logger.InfoContext(ctx, "clob credentials ready",
			slog.String("signer", signer.Address().Hex()),
			slog.String("api_key", auth.String()),
		)
		deps.Orders = deps.Clob
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Recorder.add("postgres", postgres.NewJournalStore(pgClient.Pool()))
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		bus, err := redis.DialEventBus(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = bus.Close() })
		deps.Recorder.add("redis", redis.NewEventRecorder(bus, cfg.Redis.StreamPrefix))
	}

	// --- S3 session archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if err := s3Client.Health(ctx); err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}

		archive := s3blob.NewSessionArchive(s3blob.NewWriter(s3Client), cfg.S3.Prefix, runID, started)
		closers = append(closers, func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := archive.Close(flushCtx); err != nil {
				logger.Error("session archive upload failed",
					slog.String("key", archive.Key()),
					slog.String("error", err.Error()),
				)
				return
			}
			logger.Info("session archive uploaded", slog.String("key", archive.Key()))
		})
		deps.Recorder.add("s3", archive)
	}

	// --- Notifications ---
	if cfg.Notify.Enabled() {
		var senders []notify.Sender
		if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
			senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
		}
		if cfg.Notify.DiscordWebhookURL != "" {
			senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
		}
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
		deps.Recorder.add("notify", notify.NewOutcomeAlerts(deps.Notifier))
	}

	return deps, cleanup, nil
}
