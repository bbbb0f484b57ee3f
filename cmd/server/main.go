package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/api"
	"github.com/Freeeeeet/thesis_tracker/internal/app"
	"github.com/Freeeeeet/thesis_tracker/internal/config"
	"github.com/Freeeeeet/thesis_tracker/internal/controller"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/events"
	"github.com/Freeeeeet/thesis_tracker/internal/repository"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/memory"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/Freeeeeet/thesis_tracker/internal/tracing"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// stores набор хранилищ, общий для postgres и in-memory режима
type stores struct {
	users              service.UserStore
	theses             service.ThesisStore
	guidance           service.GuidanceStore
	milestones         service.MilestoneStore
	supervisorRequests service.SupervisorRequestStore
	close              func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("👋 Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting thesis tracker",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
		zap.String("timezone", cfg.Timezone.String()))

	shutdownTracing, err := tracing.InitTracerProvider(ctx, "thesis-tracker", cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	cache, stopCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stopCache()

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	services := controller.Services{
		Users: service.NewUserService(st.users, st.theses, logger),
		Guidance: service.NewGuidanceService(st.guidance, st.theses, cache, publisher, logger, service.GuidanceOptions{
			CacheTTL:               cfg.CacheTTL,
			DefaultDurationMinutes: cfg.DefaultDurationMinutes,
		}),
		Milestones:         service.NewMilestoneService(st.milestones, st.theses, cache, cfg.CacheTTL, publisher, logger),
		SupervisorRequests: service.NewSupervisorRequestService(st.supervisorRequests, st.theses, st.users, publisher, logger),
	}

	router := api.NewRouter(api.Services{
		Guidance:           services.Guidance,
		Milestones:         services.Milestones,
		SupervisorRequests: services.SupervisorRequests,
		Users:              services.Users,
	}, api.RouterConfig{
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	errCh := make(chan error, 2)

	go func() {
		logger.Info("🌐 HTTP API listening", zap.String("port", cfg.HTTPPort))
		if err := router.Listen(":" + cfg.HTTPPort); err != nil {
			errCh <- err
		}
	}()

	stopBot, err := startBot(ctx, cfg, services, logger, errCh)
	if err != nil {
		_ = router.Shutdown()
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-errCh:
		logger.Error("Component failed", zap.Error(err))
	}

	stopBot()
	if shutdownErr := router.ShutdownWithTimeout(10 * time.Second); shutdownErr != nil {
		logger.Warn("HTTP shutdown error", zap.Error(shutdownErr))
	}
	return err
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.New()
		if cfg.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.SeedFile); err != nil {
				return nil, err
			}
			logger.Info("✅ Seed data loaded", zap.String("file", cfg.SeedFile))
		}
		return &stores{
			users:              store.Users,
			theses:             store.Theses,
			guidance:           store.Guidance,
			milestones:         store.Milestones,
			supervisorRequests: store.SupervisorRequests,
			close:              func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("✅ Connected to PostgreSQL")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		users:              repository.NewUserRepository(pool),
		theses:             repository.NewThesisRepository(pool),
		guidance:           repository.NewGuidanceRepository(pool),
		milestones:         repository.NewMilestoneRepository(pool),
		supervisorRequests: repository.NewSupervisorRequestRepository(pool),
		close:              pool.Close,
	}, nil
}

// openCache Redis, если задан адрес; иначе кэш в памяти с фоновой очисткой
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Cache, func(), error) {
	if cfg.RedisAddr != "" {
		cache, err := service.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("✅ Connected to Redis", zap.String("addr", cfg.RedisAddr))
		return cache, func() { _ = cache.Close() }, nil
	}

	cache := service.NewMemoryCache()
	scheduler := app.NewScheduler(cache, cfg.CacheTTL, logger)
	scheduler.Start(ctx)
	return cache, scheduler.Stop, nil
}

func openPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, func(), error) {
	if cfg.NatsURL == "" {
		logger.Info("NATS_URL not set, events are not published")
		return events.NopPublisher{}, func() {}, nil
	}

	publisher, err := events.NewNatsPublisher(cfg.NatsURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}

// startBot поднимает Telegram-бота, если задан токен. Диалоги переживают перезапуск через снапшот.
func startBot(ctx context.Context, cfg *config.Config, services controller.Services, logger *zap.Logger, errCh chan<- error) (func(), error) {
	if cfg.TelegramToken == "" {
		logger.Info("TELEGRAM_TOKEN not set, bot disabled")
		return func() {}, nil
	}

	stateManager := state.NewManager()
	if err := stateManager.LoadFile(cfg.StateSnapshotPath); err != nil {
		logger.Warn("Failed to restore dialog states", zap.Error(err))
	} else {
		logger.Info("Dialog states restored", zap.Int("count", stateManager.Len()))
	}

	botInstance, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	botController := controller.NewBotController(botInstance, services, stateManager, cfg.Timezone, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		// Меню команд не критично для работы
		logger.Warn("Bot commands menu not set", zap.Error(err))
	}

	botCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := botController.Start(botCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	return func() {
		cancel()
		<-done
		if err := stateManager.SaveFile(cfg.StateSnapshotPath); err != nil {
			logger.Error("Failed to save dialog states", zap.Error(err))
			return
		}
		logger.Info("Dialog states saved", zap.String("path", cfg.StateSnapshotPath))
	}, nil
}
