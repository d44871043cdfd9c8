// Точка входа Admin Console — административная консоль системы
// управления пропусками Propusk. Загружает конфигурацию, подключается
// к PostgreSQL (журнал аудита), применяет миграции, создаёт клиент
// ядра VMS, сервисный слой и API handlers, запускает фоновые задачи
// (справочный кэш, topologymetrics), HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/propusk/admin-console/internal/api/handlers"
	"github.com/propusk/admin-console/internal/api/middleware"
	"github.com/propusk/admin-console/internal/config"
	"github.com/propusk/admin-console/internal/database"
	"github.com/propusk/admin-console/internal/repository"
	"github.com/propusk/admin-console/internal/server"
	"github.com/propusk/admin-console/internal/service"
	"github.com/propusk/admin-console/internal/vmsclient"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Admin Console запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждение о дефолтном значении topologymetrics
	if os.Getenv("AC_DEPHEALTH_GROUP") == "" {
		logger.Warn("AC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Хранилище журнала аудита: миграции + пул соединений
	ctx := context.Background()
	pool, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища журнала", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 3.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 4. Клиент ядра VMS
	vmsClient, err := vmsclient.New(cfg.VMSBaseURL, cfg.VMSCACertPath, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента ядра VMS", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент ядра VMS создан", slog.String("url", cfg.VMSBaseURL))

	// 4.1 Сервисный токен для фоновых задач (client credentials)
	tokenProvider := vmsclient.NewServiceTokenProvider(
		cfg.VMSBaseURL, cfg.VMSClientID, cfg.VMSClientSecret, nil, logger,
	)

	// 5. Repositories
	auditRepo := repository.NewAuditEventRepository(pool)

	// 6. Services
	refCache := service.NewRefCache(vmsClient, tokenProvider, cfg.RefreshInterval, logger)
	entriesSvc := service.NewEntryService(vmsClient, refCache, auditRepo, logger)
	usersSvc := service.NewUserService(vmsClient, refCache, auditRepo, logger)
	importSvc := service.NewImportService(vmsClient, usersSvc, logger)

	// 7. Начальное наполнение справочного кэша и фоновый цикл обновления.
	// Ошибка первичной загрузки не фатальна: кэш отдаёт плейсхолдеры.
	refCache.Start(ctx)

	// 8. Readiness checkers (PostgreSQL + ядро VMS)
	pgChecker := database.NewReadinessChecker(pool)
	vmsChecker := vmsClient.NewReadinessChecker()
	healthHandler := handlers.NewHealthHandler(pgChecker, vmsChecker)

	// 9. OpenAPI контракт
	openapiHandler, err := handlers.NewOpenAPIHandler()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		entriesSvc,
		usersSvc,
		importSvc,
		refCache,
		auditRepo,
		openapiHandler,
		logger,
	)

	// 11. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.VMSCACertPath,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.RoleSecurityGroups,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + ядро VMS)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"admin-console",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.VMSBaseURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	refCache.Stop()

	logger.Info("Admin Console остановлен")
}
