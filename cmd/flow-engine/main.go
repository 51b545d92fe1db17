package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-flow/internal/adapter"
	"github.com/feral-file/ff-flow/internal/api/rest"
	"github.com/feral-file/ff-flow/internal/api/server"
	"github.com/feral-file/ff-flow/internal/billing"
	"github.com/feral-file/ff-flow/internal/config"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/engine"
	"github.com/feral-file/ff-flow/internal/liveupdate"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/messaging"
	"github.com/feral-file/ff-flow/internal/notifier"
	"github.com/feral-file/ff-flow/internal/portfolio"
	"github.com/feral-file/ff-flow/internal/providers/ethereum"
	"github.com/feral-file/ff-flow/internal/providers/jetstream"
	"github.com/feral-file/ff-flow/internal/providers/pricefeed"
	"github.com/feral-file/ff-flow/internal/recorder"
	"github.com/feral-file/ff-flow/internal/store"
	"github.com/feral-file/ff-flow/internal/sweeper"
	"github.com/feral-file/ff-flow/internal/watcher"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadFlowEngineConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "flow-engine",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting flow engine", zap.String("chain", string(cfg.Ethereum.ChainID)))

	clock := adapter.NewClock()
	dataStore := openStore(ctx, cfg)
	seedHoldings(ctx, dataStore, cfg.Holdings)

	// Live update sinks
	hub := liveupdate.NewHub(cfg.Server.CORSOrigins)
	sinks := []messaging.Publisher{hub}
	if cfg.NATS.Enabled {
		natsPublisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err))
		}
		sinks = append(sinks, natsPublisher)
		logger.InfoCtx(ctx, "Publishing live events to NATS", zap.String("stream", cfg.NATS.StreamName))
	}
	publisher := messaging.NewMultiPublisher(sinks...)
	defer publisher.Close()

	// Notification transports
	httpClient := adapter.NewHTTPClient(cfg.Notifier.Timeout)
	dispatcher := notifier.NewDispatcher(cfg.Notifier.Timeout,
		notifier.NewDiscordNotifier(httpClient, cfg.Notifier.AllowInsecureWebhooks),
		notifier.NewWebhookNotifier(httpClient, clock, cfg.Notifier.WebhookSigningSecret, cfg.Notifier.AllowInsecureWebhooks),
	)
	if cfg.SMTP.Enabled() {
		emailNotifier, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, adapter.NewSMTPSender(adapter.SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			UseTLS:      cfg.SMTP.UseTLS,
			UseStartTLS: cfg.SMTP.UseStartTLS,
		}), clock)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create email notifier", zap.Error(err))
		}
		dispatcher.Register(emailNotifier)
	} else {
		logger.WarnCtx(ctx, "SMTP not configured, email notifications will fail")
	}

	rec := recorder.NewRecorder(dataStore, publisher, clock)
	flowEngine := engine.NewEngine(dataStore, rec, dispatcher, clock)

	// Price feed and portfolio
	feed := pricefeed.NewBinanceFeed(adapter.NewHTTPClient(cfg.PriceFeed.Timeout), pricefeed.Config{
		BaseURL:     cfg.PriceFeed.BaseURL,
		Symbols:     cfg.PriceFeed.Symbols,
		Concurrency: cfg.PriceFeed.Concurrency,
	})
	defer feed.Close()
	portfolioService := portfolio.NewService(dataStore, feed)

	// Chain watcher
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.WebSocketURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum node", zap.Error(err))
	}
	defer ethClient.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum node")

	blockSource, err := ethereum.NewBlockSource(ethClient, cfg.Ethereum.ChainID, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create block source", zap.Error(err))
	}
	headStream := ethereum.NewHeadStream(ethClient, ethereum.StreamConfig{
		InitialInterval: cfg.Watcher.ResubscribeInitialInterval,
		MaxInterval:     cfg.Watcher.ResubscribeMaxInterval,
	}, clock)
	chainWatcher := watcher.NewWatcher(headStream, blockSource, flowEngine, watcher.Config{
		ChainID: cfg.Ethereum.ChainID,
	})
	defer chainWatcher.Close()

	// Plan billing
	paymentVerifier, err := ethereum.NewPaymentVerifier(ethClient, cfg.Ethereum.ChainID)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create payment verifier", zap.Error(err))
	}
	planPrices, err := cfg.Billing.PlanPrices()
	if err != nil {
		logger.FatalCtx(ctx, "Invalid billing prices", zap.Error(err))
	}
	billingService, err := billing.NewService(billing.Config{
		PaymentAddress: cfg.Billing.PaymentAddress,
		Prices:         planPrices,
	}, paymentVerifier, dataStore, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create billing service", zap.Error(err))
	}
	if !billingService.Enabled() {
		logger.InfoCtx(ctx, "Billing disabled, no payment address configured")
	}

	alertSweeper := sweeper.NewPortfolioAlertSweeper(
		sweeper.PortfolioAlertSweeperConfig{Interval: cfg.PortfolioAlertSweeper.Interval},
		dataStore,
		portfolioService,
		rec,
		dispatcher,
		publisher,
		clock,
	)

	// HTTP API
	readTimeout, writeTimeout, idleTimeout := cfg.Server.ServerTimeouts()
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, rest.NewHandler(rest.Deps{
		Store:     dataStore,
		Engine:    flowEngine,
		Recorder:  rec,
		Portfolio: portfolioService,
		PriceFeed: feed,
		Publisher: publisher,
		Billing:   billingService,
		Clock:     clock,
	}), hub, dataStore)

	errCh := make(chan error, 3)
	go func() {
		if err := chainWatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("watcher: %w", err)
		}
	}()
	go func() {
		if err := alertSweeper.Start(ctx); err != nil {
			errCh <- fmt.Errorf("%s: %w", alertSweeper.Name(), err)
		}
	}()
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err)
	}
	cancel()

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := alertSweeper.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "sweeper"))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	logger.InfoCtx(shutdownCtx, "Flow engine stopped")
}

// openStore returns the configured repository, migrating the schema for postgres
func openStore(ctx context.Context, cfg *config.FlowEngineConfig) store.Store {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		logger.InfoCtx(ctx, "Using in-memory store")
		return store.NewMemoryStore()
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(ctx, db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)
	return store.NewPGStore(db)
}

// seedHoldings stores the configured holdings when the portfolio is still empty
func seedHoldings(ctx context.Context, st store.PortfolioStore, seed []config.HoldingConfig) {
	if len(seed) == 0 {
		return
	}
	existing, err := st.GetHoldings(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load holdings", zap.Error(err))
	}
	if len(existing) > 0 {
		return
	}

	holdings := make([]domain.Holding, 0, len(seed))
	for _, h := range seed {
		amount, err := decimal.NewFromString(h.Amount)
		if err != nil {
			logger.FatalCtx(ctx, "Invalid holding amount", zap.String("symbol", h.Symbol), zap.Error(err))
		}
		holdings = append(holdings, domain.Holding{Symbol: h.Symbol, Amount: amount})
	}
	if err := st.SetHoldings(ctx, holdings); err != nil {
		logger.FatalCtx(ctx, "Failed to seed holdings", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Seeded portfolio holdings", zap.Int("count", len(holdings)))
}
