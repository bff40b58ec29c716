package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/config"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/db"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/gateway"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/goroutine"
	httpHandlers "github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/middleware"
	httpRouter "github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/router"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/queue"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}
	goroutine.DefaultRecoveryHandler.SetLogger(logger.Recovery())

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Пул pgx для очереди river.
	pool, err := db.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения pgx пула: %v", err)
	}
	defer pool.Close()

	if err := db.MigrateQueue(ctx, pool); err != nil {
		log.Fatalf("main: ошибка миграций очереди: %v", err)
	}

	// Redis необязателен: без него счётчики rate limit живут в памяти процесса.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	limitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		log.Fatalf("main: ошибка хранилища rate limit: %v", err)
	}

	var gw gateway.Gateway
	switch cfg.Gateway.Mode {
	case config.GatewayModeCashfree:
		gw = gateway.NewCashfree(cfg.Gateway)
	default:
		logger.WithFields(logrus.Fields{"mode": cfg.Gateway.Mode}).Warn("main: используется симулятор платёжного шлюза")
		gw = gateway.NewSimulated()
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	jobRepo := repository.NewJobRepository(dbConn)
	txRepo := repository.NewTransactionRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	settingsRepo := repository.NewSettingsRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	alertRepo := repository.NewAlertRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Сервисы.
	alertDedup := service.NewCacheService()
	go alertDedup.Run(ctx, 5*time.Minute)
	alertService := service.NewAlertService(alertRepo).WithDedup(alertDedup, 10*time.Minute)
	notificationService := service.NewNotificationService(notificationRepo, hub)

	queueClient, err := queue.NewClient(pool, notificationService, cfg.QueueWorkers)
	if err != nil {
		log.Fatalf("main: ошибка создания очереди: %v", err)
	}
	notifier := queue.NewNotifier(queueClient, notificationService)

	lifecycleService := service.NewJobLifecycleService(jobRepo, txRepo, settingsRepo, userRepo, gw, alertService, notifier)
	resolutionService := service.NewResolutionService(service.ResolutionDeps{
		Transactions:    txRepo,
		Jobs:            jobRepo,
		Disputes:        disputeRepo,
		Settings:        settingsRepo,
		Users:           userRepo,
		Gateway:         gw,
		Lifecycle:       lifecycleService,
		Alerts:          alertService,
		Notifier:        notifier,
		HighValueRefund: cfg.HighValueRefundThreshold,
	})
	disputeService := service.NewDisputeService(disputeRepo, jobRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	profileService := service.NewProfileService(userRepo)

	if err := queueClient.Start(ctx); err != nil {
		log.Fatalf("main: ошибка запуска очереди: %v", err)
	}

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Escrow:        httpHandlers.NewEscrowHandler(lifecycleService, resolutionService),
		Disputes:      httpHandlers.NewDisputeHandler(disputeService),
		Admin:         httpHandlers.NewAdminHandler(alertService, settingsService),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		Profile:       httpHandlers.NewProfileHandler(profileService),
		Health:        httpHandlers.NewHealthHandler(dbConn, redisClient),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер и очередь при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
		if err := queueClient.Stop(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки очереди: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
