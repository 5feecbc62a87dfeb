package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fx-client-portal/assistant"
	"fx-client-portal/changefeed"
	"fx-client-portal/config"
	"fx-client-portal/handlers"
	"fx-client-portal/metrics"
	"fx-client-portal/middleware"
	"fx-client-portal/models"
	"fx-client-portal/notifier"
	"fx-client-portal/services"
	"fx-client-portal/store"
	"fx-client-portal/utils"
	"fx-client-portal/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	envErr := godotenv.Load()

	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg.LogFile)
	defer closeLog()
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Warn("⚠️  No .env file found, reading environment variables directly")
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	if err := db.AutoMigrate(
		&models.Account{},
		&models.UserRole{},
		&models.RevokedToken{},
		&models.Client{},
		&models.BrokerCredential{},
		&models.PaymentProof{},
		&models.AdminSetting{},
	); err != nil {
		fatal(logger, "failed to migrate database", err)
	}

	clientStore := store.NewClientStore(db)
	proofStore := store.NewProofStore(db)
	credentialStore := store.NewCredentialStore(db)
	settingStore := store.NewSettingStore(db)
	accountStore := store.NewAccountStore(db)

	sealer, err := utils.NewSealer(cfg.Auth.SealingKey)
	if err != nil {
		fatal(logger, "failed to build credential sealer", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(metrics.Middleware())

	var blobs services.BlobStore
	if cfg.UseR2() {
		r2, err := utils.NewR2Store(ctx, utils.R2Config{
			AccountID:       cfg.Storage.AccountID,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			AccessKeySecret: cfg.Storage.AccessKeySecret,
			Bucket:          cfg.Storage.Bucket,
			CDNBaseURL:      cfg.Storage.CDNBaseURL,
		})
		if err != nil {
			fatal(logger, "failed to initialize R2 client", err)
		}
		blobs = r2
	} else {
		local, err := utils.NewLocalStore(cfg.Storage.LocalDir, strings.TrimRight(cfg.Server.PublicBaseURL, "/")+"/uploads")
		if err != nil {
			fatal(logger, "failed to ensure upload dir", err)
		}
		app.Static("/uploads", cfg.Storage.LocalDir)
		blobs = local
		logger.Warn("⚠️  storage.bucket not set, payment screenshots are kept on local disk", "dir", cfg.Storage.LocalDir)
	}

	var bus changefeed.Bus
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		redisBus := changefeed.NewRedisBus(rdb, cfg.Redis.Channel, logger)
		go redisBus.Run(ctx)
		bus = redisBus
	} else {
		bus = changefeed.NewMemoryBus(64, logger)
	}

	var sinks notifier.Multi
	if cfg.Notifier.WebhookURL != "" {
		sinks = append(sinks, &notifier.Webhook{URL: cfg.Notifier.WebhookURL, Token: cfg.Notifier.WebhookToken, Client: utils.HTTPClient})
	}
	if cfg.Notifier.TelegramToken != "" {
		tg, err := notifier.NewTelegram(cfg.Notifier.TelegramToken, cfg.Notifier.TelegramChat)
		if err != nil {
			fatal(logger, "failed to initialize telegram notifier", err)
		}
		sinks = append(sinks, tg)
	}
	if len(cfg.Notifier.KafkaBrokers) > 0 {
		k := notifier.NewKafka(cfg.Notifier.KafkaBrokers, cfg.Notifier.KafkaTopic)
		defer k.Close()
		sinks = append(sinks, k)
	}
	var notify notifier.Notifier = notifier.Nop{}
	if len(sinks) > 0 {
		notify = notifier.NewAsync(sinks, logger)
	}

	identity := &services.IdentityService{
		Accounts: accountStore,
		Secret:   []byte(cfg.Auth.JWTSecret),
		TTL:      cfg.Auth.SessionTTL,
		Logger:   logger,
	}
	settings := &services.SettingsService{Settings: settingStore, Bus: bus, Logger: logger}
	dashboard := &services.DashboardService{Clients: clientStore, Proofs: proofStore, Settings: settings, Bus: bus, Logger: logger}
	onboarding := &services.OnboardingService{Clients: clientStore, Bus: bus, Notifier: notify, Logger: logger}
	proofs := &services.ProofService{
		Dashboard: dashboard,
		Clients:   clientStore,
		Proofs:    proofStore,
		Blobs:     blobs,
		Bus:       bus,
		Notifier:  notify,
		Logger:    logger,
	}
	clientAdmin := &services.ClientAdminService{Clients: clientStore, Proofs: proofStore, Bus: bus, Notifier: notify, Logger: logger}
	credentials := &services.CredentialService{Credentials: credentialStore, Sealer: sealer, Bus: bus, Logger: logger}
	balances := &services.BalanceService{Clients: clientStore, Bus: bus, Logger: logger}

	if cfg.Auth.OperatorEmail != "" {
		if err := identity.EnsureOperator(ctx, cfg.Auth.OperatorEmail); err != nil {
			fatal(logger, "failed to grant operator role", err)
		}
	}

	scheduler, err := services.NewScheduler(logger)
	if err != nil {
		fatal(logger, "failed to create scheduler", err)
	}
	if cfg.Schedule.ActivationEnabled {
		if err := scheduler.ScheduleActivation(clientAdmin, cfg.Schedule.ActivationCron); err != nil {
			fatal(logger, "failed to schedule sunday activation", err)
		}
	}
	if err := scheduler.SchedulePurge(accountStore); err != nil {
		fatal(logger, "failed to schedule token purge", err)
	}
	scheduler.Start()

	if cfg.BalanceFeed.URL != "" {
		feed := workers.NewBalanceFeedClient(cfg.BalanceFeed.URL, cfg.Auth.ServiceToken)
		go workers.PollBalances(ctx, feed, balances, cfg.BalanceFeed.Interval, logger)
	}

	applyLimiter := middleware.NewRateLimiter(cfg.RateLimit.ApplyPerMinute, 2, logger)
	chatLimiter := middleware.NewRateLimiter(cfg.RateLimit.ChatPerMinute, 5, logger)
	applyLimiter.StartCleanup(10*time.Minute, ctx.Done())
	chatLimiter.StartCleanup(10*time.Minute, ctx.Done())

	bot := assistant.NewClient(cfg.Assistant.URL, cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.SystemPrompt, cfg.Assistant.MaxHistory)

	handlers.SetupInternalRoutes(app, balances, cfg.Auth.ServiceToken, logger)
	handlers.SetupAuthRoutes(app, identity, logger)
	handlers.SetupApplicationRoutes(app, onboarding, identity, applyLimiter, logger)
	handlers.SetupClientRoutes(app, handlers.ClientServices{
		Identity:    identity,
		Dashboard:   dashboard,
		Proofs:      proofs,
		Credentials: credentials,
	}, logger)
	handlers.SetupAdminRoutes(app, handlers.AdminServices{
		Identity:    identity,
		Clients:     clientAdmin,
		Proofs:      proofs,
		Settings:    settings,
		Credentials: credentials,
	}, logger)
	handlers.SetupStreamRoutes(app, identity, dashboard, bus, logger)
	handlers.SetupChatRoutes(app, identity, bot, chatLimiter, logger)

	go func() {
		if err := app.Listen(cfg.Server.Addr); err != nil {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	logger.Info("✅ Server running", "addr", cfg.Server.Addr)
	logger.Info("✅ CORS configured", "origins", cfg.Server.AllowedOrigins)
	if cfg.BalanceFeed.URL != "" {
		logger.Info("✅ Balance polling running", "interval", cfg.BalanceFeed.Interval)
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", "err", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
