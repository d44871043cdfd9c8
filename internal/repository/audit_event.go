package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/propusk/admin-console/internal/domain/model"
)

// AuditEventRepository — интерфейс для таблицы audit_events.
type AuditEventRepository interface {
	// Create записывает событие аудита. ID и CreatedAt заполняются при записи.
	Create(ctx context.Context, event *model.AuditEvent) error
	// List возвращает события аудита, новые первыми, с пагинацией.
	List(ctx context.Context, limit, offset int) ([]model.AuditEvent, error)
	// Count возвращает общее количество событий.
	Count(ctx context.Context) (int, error)
	// ListByEntity возвращает события по конкретной сущности, новые первыми.
	ListByEntity(ctx context.Context, entity string, entityID int64, limit int) ([]model.AuditEvent, error)
}

// auditEventRepo — реализация AuditEventRepository.
type auditEventRepo struct {
	db DBTX
}

// NewAuditEventRepository создаёт репозиторий журнала аудита.
func NewAuditEventRepository(db DBTX) AuditEventRepository {
	return &auditEventRepo{db: db}
}

func (r *auditEventRepo) Create(ctx context.Context, event *model.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_events (id, actor_id, actor_name, action, entity, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		event.ID, event.ActorID, event.ActorName, event.Action,
		event.Entity, event.EntityID, event.Detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи события аудита: %w", err)
	}
	return nil
}

func (r *auditEventRepo) List(ctx context.Context, limit, offset int) ([]model.AuditEvent, error) {
	query := `
		SELECT id, actor_id, actor_name, action, entity, entity_id, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки событий аудита: %w", err)
	}
	defer rows.Close()

	return scanAuditEvents(rows)
}

func (r *auditEventRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта событий аудита: %w", err)
	}
	return count, nil
}

func (r *auditEventRepo) ListByEntity(ctx context.Context, entity string, entityID int64, limit int) ([]model.AuditEvent, error) {
	query := `
		SELECT id, actor_id, actor_name, action, entity, entity_id, detail, created_at
		FROM audit_events
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, entity, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки событий по сущности: %w", err)
	}
	defer rows.Close()

	return scanAuditEvents(rows)
}

// scanAuditEvents читает строки выборки в срез событий.
func scanAuditEvents(rows pgx.Rows) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(
			&e.ID, &e.ActorID, &e.ActorName, &e.Action,
			&e.Entity, &e.EntityID, &e.Detail, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения события аудита: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода выборки: %w", err)
	}
	return events, nil
}
