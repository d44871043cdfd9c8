// Пакет database — хранилище журнала аудита Admin Console.
// Консоль держит в PostgreSQL единственную таблицу — журнал действий;
// всё доменное состояние (пропуска, пользователи, справочники) живёт
// в ядре VMS. Open применяет встроенные миграции журнала и отдаёт
// готовый пул соединений.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propusk/admin-console/internal/config"
)

// Схема журнала аудита. Единственный владелец схемы — консоль,
// поэтому миграции применяются безусловно при старте.
//
//go:embed migrations/*.sql
var journalMigrations embed.FS

// connectTimeout — предел ожидания первого ping при старте.
const connectTimeout = 10 * time.Second

// Open применяет миграции журнала аудита и открывает пул соединений.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	log := logger.With(slog.String("component", "database"))

	if err := applyJournalMigrations(cfg, log); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN журнала аудита: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула соединений: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL недоступен: %w", err)
	}

	log.Info("Хранилище журнала аудита готово",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)
	return pool, nil
}

// applyJournalMigrations доводит схему журнала до актуальной версии.
func applyJournalMigrations(cfg *config.Config, log *slog.Logger) error {
	source, err := iofs.New(journalMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("чтение встроенных миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("инициализация миграций журнала: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debug("Схема журнала аудита актуальна")
	case err != nil:
		return fmt.Errorf("применение миграций журнала: %w", err)
	default:
		version, dirty, _ := m.Version()
		log.Info("Миграции журнала аудита применены",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}

// ReadinessChecker — проверка готовности PostgreSQL для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности хранилища журнала.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет подключение к PostgreSQL через ping.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("хранилище журнала недоступно: %v", err)
	}
	return "ok", "подключение активно"
}
