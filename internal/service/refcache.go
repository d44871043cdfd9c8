// refcache.go — фоновый кэш справочников ядра VMS.
//
// RefCache периодически (AC_REFRESH_INTERVAL) обновляет нормализованные
// снимки справочников — посетители, роли, подразделения — используя
// сервисный токен. Снимки читаются в путях запросов без обращения к ядру;
// при холодном кэше вызывающий код деградирует до плейсхолдеров по
// идентификатору, но не падает.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/propusk/admin-console/internal/domain/model"
	"github.com/propusk/admin-console/internal/normalize"
	"github.com/propusk/admin-console/internal/vmsclient"
)

// Prometheus-метрики обновления справочников.
var refRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ac_reference_refresh_duration_seconds",
	Help:    "Длительность обновления справочного кэша из ядра VMS",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
})

// RefCache — кэш справочников с фоновым обновлением.
type RefCache struct {
	vms           *vmsclient.Client
	tokenProvider vmsclient.TokenProvider
	interval      time.Duration
	logger        *slog.Logger

	mu          sync.RWMutex
	visitors    []model.Visitor
	roles       []model.Role
	departments []model.Department
	refreshedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefCache создаёт кэш справочников.
func NewRefCache(
	vms *vmsclient.Client,
	tokenProvider vmsclient.TokenProvider,
	interval time.Duration,
	logger *slog.Logger,
) *RefCache {
	return &RefCache{
		vms:           vms,
		tokenProvider: tokenProvider,
		interval:      interval,
		logger:        logger.With(slog.String("component", "refcache")),
	}
}

// Start запускает фоновую горутину обновления справочников.
// Первое обновление выполняется сразу, далее — по ticker.
func (c *RefCache) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		c.logger.Info("Фоновое обновление справочников запущено",
			slog.String("interval", c.interval.String()),
		)

		if err := c.RefreshNow(ctx); err != nil {
			c.logger.Error("Первичное обновление справочников не удалось",
				slog.String("error", err.Error()),
			)
		}

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Фоновое обновление справочников остановлено")
				return
			case <-ticker.C:
				if err := c.RefreshNow(ctx); err != nil {
					c.logger.Error("Ошибка обновления справочников",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()
}

// Stop останавливает фоновое обновление и дожидается завершения горутины.
func (c *RefCache) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		<-c.done
	}
}

// RefreshNow выполняет немедленное обновление всех справочников.
func (c *RefCache) RefreshNow(ctx context.Context) error {
	start := time.Now()

	token, err := c.tokenProvider(ctx)
	if err != nil {
		return fmt.Errorf("получение сервисного токена: %w", err)
	}

	rawVisitors, err := c.vms.ListVisitors(ctx, token)
	if err != nil {
		return fmt.Errorf("загрузка посетителей: %w", err)
	}
	rawRoles, err := c.vms.ListRoles(ctx, token)
	if err != nil {
		return fmt.Errorf("загрузка ролей: %w", err)
	}
	rawDepartments, err := c.vms.ListDepartments(ctx, token)
	if err != nil {
		return fmt.Errorf("загрузка подразделений: %w", err)
	}

	visitors := normalize.Visitors(rawVisitors)
	roles := normalize.Roles(rawRoles)
	departments := normalize.Departments(rawDepartments)

	c.mu.Lock()
	c.visitors = visitors
	c.roles = roles
	c.departments = departments
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	refRefreshDuration.Observe(time.Since(start).Seconds())

	c.logger.Info("Справочники обновлены",
		slog.Int("visitors", len(visitors)),
		slog.Int("roles", len(roles)),
		slog.Int("departments", len(departments)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// Visitors возвращает снимок списка посетителей.
func (c *RefCache) Visitors() []model.Visitor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visitors
}

// Roles возвращает снимок списка ролей.
func (c *RefCache) Roles() []model.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roles
}

// Departments возвращает снимок списка подразделений.
func (c *RefCache) Departments() []model.Department {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.departments
}

// RefreshedAt возвращает время последнего успешного обновления.
// Нулевое время — кэш ещё холодный.
func (c *RefCache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// RoleName возвращает имя роли по идентификатору.
// При холодном кэше или неизвестном идентификаторе — плейсхолдер.
func (c *RefCache) RoleName(id int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.roles {
		if r.ID == id {
			return r.Name
		}
	}
	return fmt.Sprintf("Роль #%d", id)
}

// DepartmentName возвращает имя подразделения по идентификатору.
// При холодном кэше или неизвестном идентификаторе — плейсхолдер.
func (c *RefCache) DepartmentName(id int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.departments {
		if d.ID == id {
			return d.Name
		}
	}
	return fmt.Sprintf("Подразделение #%d", id)
}
