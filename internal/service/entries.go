// entries.go — сервис рабочего пространства пропусков.
//
// Чтение: загрузка сырых записей из ядра VMS → нормализация → разбиение
// на «текущие»/«историю» → независимые поиск и пагинация двух таблиц.
//
// Мутации (confirm-then-refetch): прочитать исходную запись из ядра,
// применить изменение к каноническому виду, отправить полную запись
// обратно, перечитать. Консоль не держит локального состояния пропусков.
// Параллельные мутации одной записи отсекаются single-flight guard'ом.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/propusk/admin-console/internal/classify"
	"github.com/propusk/admin-console/internal/domain/model"
	"github.com/propusk/admin-console/internal/normalize"
	"github.com/propusk/admin-console/internal/repository"
	"github.com/propusk/admin-console/internal/viewmodel"
	"github.com/propusk/admin-console/internal/vmsclient"
)

// timestampLayout — формат меток времени входа/выхода, отправляемых в ядро.
const timestampLayout = "2006-01-02T15:04:05"

// Actor — действующий пользователь для журнала аудита.
type Actor struct {
	ID   int64
	Name string
}

// WorkspaceQuery — параметры рабочего пространства: независимые поиск
// и пагинация для таблиц «текущие» и «история».
type WorkspaceQuery struct {
	Query        string
	HistoryQuery string
	Page         int
	HistoryPage  int
	PageSize     int
}

// WorkspaceView — две таблицы рабочего пространства.
type WorkspaceView struct {
	Current viewmodel.Page[model.VisitorEntry] `json:"current"`
	History viewmodel.Page[model.VisitorEntry] `json:"history"`
}

// SecurityEditInput — редактируемые охраной поля записи пропуска.
// nil — поле не меняется. Флаги согласования/столовой/ночёвки
// в этой операции не редактируются: они всегда переносятся из
// исходной записи.
type SecurityEditInput struct {
	GatepassNo  *string `json:"gatepassNo"`
	VehicleType *string `json:"vehicleType"`
	VehicleNo   *string `json:"vehicleNo"`
	Date        *string `json:"date"`
	InTime      *string `json:"inTime"`
	OutTime     *string `json:"outTime"`
	Purpose     *string `json:"purpose"`
}

// visitorProvider — источник снимка справочника посетителей.
// Реализуется RefCache; в тестах подменяется стабом.
type visitorProvider interface {
	Visitors() []model.Visitor
}

// EntryService — сервис рабочего пространства и мутаций записей пропусков.
type EntryService struct {
	vms      *vmsclient.Client
	visitors visitorProvider
	audit    repository.AuditEventRepository
	logger   *slog.Logger

	// now подменяется в тестах.
	now func() time.Time

	// Single-flight guard: не более одной мутации на запись одновременно.
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewEntryService создаёт сервис записей пропусков.
func NewEntryService(
	vms *vmsclient.Client,
	visitors visitorProvider,
	audit repository.AuditEventRepository,
	logger *slog.Logger,
) *EntryService {
	return &EntryService{
		vms:      vms,
		visitors: visitors,
		audit:    audit,
		logger:   logger.With(slog.String("component", "entry_service")),
		now:      time.Now,
		inFlight: make(map[int64]struct{}),
	}
}

// Workspace загружает записи пропусков и собирает обе таблицы.
func (s *EntryService) Workspace(ctx context.Context, token string, query WorkspaceQuery) (*WorkspaceView, error) {
	raw, err := s.vms.ListVisitorEntries(ctx, token)
	if err != nil {
		return nil, wrapVMSError("загрузка записей пропусков", err)
	}

	entries := normalize.Entries(raw, s.visitors.Visitors())
	current, history := classify.Partition(entries, s.now())

	searchText := func(e model.VisitorEntry) string { return e.SearchText() }
	view := &WorkspaceView{
		Current: viewmodel.Build(current, query.Query, query.Page, query.PageSize, searchText),
		History: viewmodel.Build(history, query.HistoryQuery, query.HistoryPage, query.PageSize, searchText),
	}
	return view, nil
}

// Get возвращает каноническую запись пропуска по идентификатору.
func (s *EntryService) Get(ctx context.Context, token string, id int64) (*model.VisitorEntry, error) {
	entry, err := s.fetchEntry(ctx, token, id)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Approve согласовывает запись от имени принимающего пользователя.
// Разрешено только принимающему пользователю записи и только из
// состояния pending. Флаг пользовательского согласования не трогается:
// он переносится из исходной записи как есть.
func (s *EntryService) Approve(ctx context.Context, token string, actor Actor, id int64) (*model.VisitorEntry, error) {
	return s.mutate(ctx, token, id, func(entry *model.VisitorEntry) error {
		if entry.HostUserID != actor.ID {
			return fmt.Errorf("%w: согласовать может только принимающий пользователь", ErrForbidden)
		}
		switch entry.ApprovalState() {
		case model.ApprovalRejected:
			return fmt.Errorf("%w: запись уже отклонена", ErrConflict)
		case model.ApprovalApproved:
			return fmt.Errorf("%w: запись уже согласована", ErrConflict)
		}
		entry.IsApproved = true
		return nil
	}, actor, model.AuditActionApprove, "согласование пропуска")
}

// Reject отклоняет запись от имени принимающего пользователя.
// Отклонение терминально: повторное отклонение — конфликт.
// Отклонение уже согласованной записи допускается (отзыв согласования);
// оба флага согласования при этом снимаются, чтобы ядро не получило
// запись, одновременно согласованную и отклонённую.
func (s *EntryService) Reject(ctx context.Context, token string, actor Actor, id int64) (*model.VisitorEntry, error) {
	return s.mutate(ctx, token, id, func(entry *model.VisitorEntry) error {
		if entry.HostUserID != actor.ID {
			return fmt.Errorf("%w: отклонить может только принимающий пользователь", ErrForbidden)
		}
		if entry.IsRejected {
			return fmt.Errorf("%w: запись уже отклонена", ErrConflict)
		}
		entry.IsRejected = true
		entry.IsApproved = false
		entry.IsUserApproved = false
		return nil
	}, actor, model.AuditActionReject, "отклонение пропуска")
}

// SetInTime отмечает время входа. Повторная отметка — конфликт.
func (s *EntryService) SetInTime(ctx context.Context, token string, actor Actor, id int64) (*model.VisitorEntry, error) {
	stamp := s.now().Format(timestampLayout)
	return s.mutate(ctx, token, id, func(entry *model.VisitorEntry) error {
		if entry.InTime != "" {
			return fmt.Errorf("%w: время входа уже отмечено", ErrConflict)
		}
		entry.InTime = stamp
		return nil
	}, actor, model.AuditActionSetInTime, "отметка времени входа "+stamp)
}

// SetOutTime отмечает время выхода. Повторная отметка — конфликт.
func (s *EntryService) SetOutTime(ctx context.Context, token string, actor Actor, id int64) (*model.VisitorEntry, error) {
	stamp := s.now().Format(timestampLayout)
	return s.mutate(ctx, token, id, func(entry *model.VisitorEntry) error {
		if entry.OutTime != "" {
			return fmt.Errorf("%w: время выхода уже отмечено", ErrConflict)
		}
		entry.OutTime = stamp
		return nil
	}, actor, model.AuditActionSetOutTime, "отметка времени выхода "+stamp)
}

// SecurityEdit применяет правку охраны к записи пропуска.
// Флаги согласования, отклонения, столовой и ночёвки всегда переносятся
// из исходной записи: правка охраны не может ни снять, ни выдать
// согласование.
func (s *EntryService) SecurityEdit(ctx context.Context, token string, actor Actor, id int64, input SecurityEditInput) (*model.VisitorEntry, error) {
	return s.mutate(ctx, token, id, func(entry *model.VisitorEntry) error {
		applyString := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		applyString(&entry.GatepassNo, input.GatepassNo)
		applyString(&entry.VehicleType, input.VehicleType)
		applyString(&entry.VehicleNo, input.VehicleNo)
		applyString(&entry.Date, input.Date)
		applyString(&entry.InTime, input.InTime)
		applyString(&entry.OutTime, input.OutTime)
		applyString(&entry.Purpose, input.Purpose)
		return nil
	}, actor, model.AuditActionSecurityEdit, "правка записи охраной")
}

// mutate — общий каркас мутации записи: single-flight guard, чтение
// исходной записи, применение изменения, полная отправка, перечитывание,
// журналирование.
func (s *EntryService) mutate(
	ctx context.Context,
	token string,
	id int64,
	apply func(entry *model.VisitorEntry) error,
	actor Actor,
	auditAction, auditDetail string,
) (*model.VisitorEntry, error) {
	if !s.acquire(id) {
		return nil, fmt.Errorf("%w: запись %d", ErrMutationInFlight, id)
	}
	defer s.release(id)

	// Исходная запись: источник сохраняемых флагов и полей.
	entry, err := s.fetchEntry(ctx, token, id)
	if err != nil {
		return nil, err
	}

	if err := apply(entry); err != nil {
		return nil, err
	}

	// Полная запись уходит в ядро: канонические имена полей совпадают
	// с основным вариантом именования ядра.
	if _, err := s.vms.UpdateVisitorEntry(ctx, token, id, entry); err != nil {
		return nil, wrapVMSError("обновление записи пропуска", err)
	}

	s.journal(ctx, actor, auditAction, "entry", id, auditDetail)

	// Перечитываем подтверждённое состояние из ядра.
	return s.fetchEntry(ctx, token, id)
}

// fetchEntry читает и нормализует одну запись пропуска.
func (s *EntryService) fetchEntry(ctx context.Context, token string, id int64) (*model.VisitorEntry, error) {
	raw, err := s.vms.GetVisitorEntry(ctx, token, id)
	if err != nil {
		return nil, wrapVMSError("чтение записи пропуска", err)
	}

	rec, ok := normalize.AsRecord(raw)
	if !ok {
		return nil, fmt.Errorf("ядро вернуло неожиданную форму записи %d", id)
	}

	entry := normalize.Entry(rec, s.visitors.Visitors())
	if entry.ID == 0 {
		entry.ID = id
	}
	return &entry, nil
}

// acquire пытается захватить запись для мутации.
func (s *EntryService) acquire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

// release освобождает запись после мутации.
func (s *EntryService) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// journal записывает событие аудита best-effort: ошибка журнала
// логируется, но не проваливает действие.
func (s *EntryService) journal(ctx context.Context, actor Actor, action, entity string, entityID int64, detail string) {
	if s.audit == nil {
		return
	}
	event := &model.AuditEvent{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Detail:    detail,
	}
	if err := s.audit.Create(ctx, event); err != nil {
		s.logger.Error("Не удалось записать событие аудита",
			slog.String("action", action),
			slog.Int64("entity_id", entityID),
			slog.String("error", err.Error()),
		)
	}
}

// wrapVMSError переводит ошибки клиента ядра в ошибки сервисного слоя.
func wrapVMSError(op string, err error) error {
	var apiErr *vmsclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrVMSUnavailable, op, err)
}
