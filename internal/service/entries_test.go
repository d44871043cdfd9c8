package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/propusk/admin-console/internal/domain/model"
	"github.com/propusk/admin-console/internal/vmsclient"
)

// testNow — фиксированный момент «сейчас» для тестов классификации.
var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// stubVisitors — стаб visitorProvider.
type stubVisitors struct {
	visitors []model.Visitor
}

func (s *stubVisitors) Visitors() []model.Visitor { return s.visitors }

// stubAudit — стаб журнала аудита, собирающий события в память.
type stubAudit struct {
	mu     sync.Mutex
	events []model.AuditEvent
	fail   bool
}

func (s *stubAudit) Create(_ context.Context, event *model.AuditEvent) error {
	if s.fail {
		return errors.New("журнал недоступен")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *stubAudit) List(_ context.Context, _, _ int) ([]model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEvent(nil), s.events...), nil
}

func (s *stubAudit) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), nil
}

func (s *stubAudit) ListByEntity(_ context.Context, _ string, _ int64, _ int) ([]model.AuditEvent, error) {
	return nil, nil
}

// vmsMock — мок ядра VMS: хранит сырые записи пропусков в памяти.
type vmsMock struct {
	mu      sync.Mutex
	entries map[int64]map[string]any
	listDoc func() any // переопределяемый ответ списка
	puts    int
}

func newVMSMock() *vmsMock {
	return &vmsMock{entries: make(map[int64]map[string]any)}
}

func (m *vmsMock) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/visitor-entries", func(w http.ResponseWriter, _ *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		var doc any
		if m.listDoc != nil {
			doc = m.listDoc()
		} else {
			var list []any
			for _, e := range m.entries {
				list = append(list, e)
			}
			doc = map[string]any{"$values": list}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("GET /api/v1/visitor-entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		id := pathID(r)
		entry, ok := m.entries[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"запись не найдена"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entry)
	})
	mux.HandleFunc("PUT /api/v1/visitor-entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		id := pathID(r)
		if _, ok := m.entries[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.entries[id] = body
		m.puts++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

// testLogger — логгер для тестов, пишет только ошибки.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEntryService поднимает мок ядра и собирает EntryService.
func newTestEntryService(t *testing.T, mock *vmsMock) (*EntryService, *stubAudit) {
	t.Helper()

	server := httptest.NewServer(mock.handler())
	t.Cleanup(server.Close)

	logger := testLogger()
	client := vmsclient.NewWithHTTPClient(server.URL, server.Client(), logger)

	audit := &stubAudit{}
	svc := NewEntryService(client, &stubVisitors{}, audit, logger)
	svc.now = func() time.Time { return testNow }
	return svc, audit
}

// pendingEntry — сырая запись в PascalCase с полями, которые консоль
// не редактирует (флаги столовой/ночёвки).
func pendingEntry(id, hostID int64) map[string]any {
	return map[string]any{
		"Id":             id,
		"VisitorId":      int64(3),
		"VisitorName":    "Гостев Гость",
		"GatepassNo":     "GP-77",
		"VehicleType":    "легковой",
		"VehicleNo":      "А123ВС77",
		"Date":           "2024-06-01",
		"InTime":         "",
		"OutTime":        "",
		"HostUserId":     hostID,
		"Purpose":        "встреча",
		"IsCanteen":      true,
		"IsStay":         true,
		"IsApproved":     false,
		"IsUserApproved": false,
		"IsRejected":     false,
	}
}

// TestWorkspace_Partition: записи раскладываются на текущие и историю,
// таблицы пагинируются независимо.
func TestWorkspace_Partition(t *testing.T) {
	mock := newVMSMock()
	mock.listDoc = func() any {
		return map[string]any{"$values": []any{
			map[string]any{"id": 1, "visitorName": "Текущий", "outTime": ""},
			map[string]any{"id": 2, "visitorName": "Ушедший", "outTime": "2024-05-30T10:00"},
			map[string]any{"id": 3, "visitorName": "Отклонённый", "isRejected": true},
			map[string]any{"id": 4, "visitorName": "Будущий", "outTime": "2999-01-01T10:00"},
		}}
	}
	svc, _ := newTestEntryService(t, mock)

	view, err := svc.Workspace(context.Background(), "tok", WorkspaceQuery{Page: 1, HistoryPage: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if view.Current.TotalItems != 2 {
		t.Errorf("текущие: ожидалось 2, получено %d", view.Current.TotalItems)
	}
	if view.History.TotalItems != 2 {
		t.Errorf("история: ожидалось 2, получено %d", view.History.TotalItems)
	}

	for _, e := range view.History.Items {
		if e.ID != 2 && e.ID != 3 {
			t.Errorf("в истории посторонняя запись %d", e.ID)
		}
	}
}

// TestWorkspace_IndependentSearch: поиск в одной таблице не влияет на другую.
func TestWorkspace_IndependentSearch(t *testing.T) {
	mock := newVMSMock()
	mock.listDoc = func() any {
		return []any{
			map[string]any{"id": 1, "visitorName": "Иванов", "outTime": ""},
			map[string]any{"id": 2, "visitorName": "Петров", "outTime": ""},
			map[string]any{"id": 3, "visitorName": "Иванов", "outTime": "2024-05-01T09:00"},
		}
	}
	svc, _ := newTestEntryService(t, mock)

	view, err := svc.Workspace(context.Background(), "tok", WorkspaceQuery{
		Query: "иванов", Page: 1, HistoryPage: 1, PageSize: 10,
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if view.Current.TotalItems != 1 {
		t.Errorf("текущие по запросу: ожидалось 1, получено %d", view.Current.TotalItems)
	}
	// История без запроса — полная
	if view.History.TotalItems != 1 {
		t.Errorf("история: ожидалось 1, получено %d", view.History.TotalItems)
	}
	if view.History.Query != "" {
		t.Errorf("запрос текущих просочился в историю: %q", view.History.Query)
	}
}

// TestApprove: согласование принимающим пользователем выставляет флаг
// согласования, не трогает пользовательское согласование и пишет аудит.
func TestApprove(t *testing.T) {
	mock := newVMSMock()
	mock.entries[42] = pendingEntry(42, 105)
	svc, audit := newTestEntryService(t, mock)

	entry, err := svc.Approve(context.Background(), "tok", Actor{ID: 105, Name: "petrov"}, 42)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if !entry.IsApproved {
		t.Error("флаг согласования не выставлен")
	}
	if entry.IsUserApproved {
		t.Error("пользовательское согласование выставлено, хотя в исходной записи его не было")
	}
	if entry.ApprovalState() != model.ApprovalApproved {
		t.Errorf("состояние: ожидалось approved, получено %s", entry.ApprovalState())
	}

	// Флаги столовой и ночёвки сохранены
	if !entry.IsCanteen || !entry.IsStay {
		t.Error("флаги столовой/ночёвки потеряны при мутации")
	}

	events, _ := audit.List(context.Background(), 10, 0)
	if len(events) != 1 || events[0].Action != model.AuditActionApprove || events[0].EntityID != 42 {
		t.Errorf("событие аудита не записано: %+v", events)
	}
}

// TestApprove_PreservesUserApproval: значение пользовательского
// согласования переносится из исходной записи в обе стороны.
func TestApprove_PreservesUserApproval(t *testing.T) {
	withUser := pendingEntry(7, 105)
	withUser["IsUserApproved"] = true

	mock := newVMSMock()
	mock.entries[7] = withUser
	svc, _ := newTestEntryService(t, mock)

	entry, err := svc.Approve(context.Background(), "tok", Actor{ID: 105}, 7)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !entry.IsUserApproved {
		t.Error("пользовательское согласование потеряно при мутации")
	}
}

// TestApprove_ForeignHost: чужую запись согласовать нельзя.
func TestApprove_ForeignHost(t *testing.T) {
	mock := newVMSMock()
	mock.entries[42] = pendingEntry(42, 105)
	svc, _ := newTestEntryService(t, mock)

	_, err := svc.Approve(context.Background(), "tok", Actor{ID: 9}, 42)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("ожидалась ErrForbidden, получено %v", err)
	}
	if mock.puts != 0 {
		t.Error("мутация ушла в ядро несмотря на запрет")
	}
}

// TestApprove_Conflicts: повторное согласование и согласование
// отклонённой записи — конфликты.
func TestApprove_Conflicts(t *testing.T) {
	approved := pendingEntry(1, 105)
	approved["IsApproved"] = true
	rejected := pendingEntry(2, 105)
	rejected["IsRejected"] = true

	mock := newVMSMock()
	mock.entries[1] = approved
	mock.entries[2] = rejected
	svc, _ := newTestEntryService(t, mock)

	for _, id := range []int64{1, 2} {
		if _, err := svc.Approve(context.Background(), "tok", Actor{ID: 105}, id); !errors.Is(err, ErrConflict) {
			t.Errorf("запись %d: ожидалась ErrConflict, получено %v", id, err)
		}
	}
}

// TestReject: отклонение терминально, доминирует над согласованием
// и снимает оба флага согласования.
func TestReject(t *testing.T) {
	approved := pendingEntry(1, 105)
	approved["IsApproved"] = true
	approved["IsUserApproved"] = true
	mock := newVMSMock()
	mock.entries[1] = approved
	svc, _ := newTestEntryService(t, mock)

	entry, err := svc.Reject(context.Background(), "tok", Actor{ID: 105}, 1)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if entry.ApprovalState() != model.ApprovalRejected {
		t.Errorf("состояние: ожидалось rejected, получено %s", entry.ApprovalState())
	}
	// Запись не может уйти в ядро одновременно согласованной и отклонённой
	if entry.IsApproved || entry.IsUserApproved {
		t.Errorf("флаги согласования не сняты: IsApproved=%v IsUserApproved=%v",
			entry.IsApproved, entry.IsUserApproved)
	}

	// Повторное отклонение — конфликт
	if _, err := svc.Reject(context.Background(), "tok", Actor{ID: 105}, 1); !errors.Is(err, ErrConflict) {
		t.Errorf("ожидалась ErrConflict, получено %v", err)
	}
}

// TestSetInTime: отметка только при пустом времени.
func TestSetInTime(t *testing.T) {
	mock := newVMSMock()
	mock.entries[42] = pendingEntry(42, 105)
	svc, _ := newTestEntryService(t, mock)

	entry, err := svc.SetInTime(context.Background(), "tok", Actor{ID: 200, Name: "guard"}, 42)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	want := testNow.Format(timestampLayout)
	if entry.InTime != want {
		t.Errorf("InTime: ожидалось %q, получено %q", want, entry.InTime)
	}

	// Повторная отметка — конфликт
	if _, err := svc.SetInTime(context.Background(), "tok", Actor{ID: 200}, 42); !errors.Is(err, ErrConflict) {
		t.Errorf("ожидалась ErrConflict, получено %v", err)
	}
}

// TestSetOutTime: после отметки выхода запись уходит в историю.
func TestSetOutTime(t *testing.T) {
	mock := newVMSMock()
	mock.entries[42] = pendingEntry(42, 105)
	svc, _ := newTestEntryService(t, mock)

	if _, err := svc.SetOutTime(context.Background(), "tok", Actor{ID: 200}, 42); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Классификация относительно более позднего «сейчас»
	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	view, err := svc.Workspace(context.Background(), "tok", WorkspaceQuery{Page: 1, HistoryPage: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if view.History.TotalItems != 1 || view.Current.TotalItems != 0 {
		t.Errorf("запись с отмеченным выходом должна быть в истории: current=%d history=%d",
			view.Current.TotalItems, view.History.TotalItems)
	}
}

// TestSecurityEdit_FlagPreservation: правка охраны меняет транспортные
// поля, но переносит все флаги согласования/столовой/ночёвки из исходной
// записи.
func TestSecurityEdit_FlagPreservation(t *testing.T) {
	original := pendingEntry(42, 105)
	original["IsApproved"] = true
	original["IsUserApproved"] = true

	mock := newVMSMock()
	mock.entries[42] = original
	svc, _ := newTestEntryService(t, mock)

	newVehicle := "В777ОР99"
	entry, err := svc.SecurityEdit(context.Background(), "tok", Actor{ID: 200}, 42, SecurityEditInput{
		VehicleNo: &newVehicle,
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if entry.VehicleNo != newVehicle {
		t.Errorf("VehicleNo: ожидалось %q, получено %q", newVehicle, entry.VehicleNo)
	}
	// Нетронутые поля сохранены
	if entry.Purpose != "встреча" || entry.GatepassNo != "GP-77" {
		t.Errorf("нетронутые поля потеряны: %+v", entry)
	}
	// Флаги перенесены из исходной записи
	if !entry.IsCanteen || !entry.IsStay || !entry.IsApproved || !entry.IsUserApproved || entry.IsRejected {
		t.Errorf("флаги не перенесены из исходной записи: %+v", entry)
	}
}

// TestMutationInFlight: вторая параллельная мутация той же записи — 409.
func TestMutationInFlight(t *testing.T) {
	mock := newVMSMock()
	mock.entries[42] = pendingEntry(42, 105)
	svc, _ := newTestEntryService(t, mock)

	if !svc.acquire(42) {
		t.Fatal("не удалось захватить запись")
	}
	defer svc.release(42)

	_, err := svc.Approve(context.Background(), "tok", Actor{ID: 105}, 42)
	if !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("ожидалась ErrMutationInFlight, получено %v", err)
	}

	// Другая запись не блокируется
	mock.entries[43] = pendingEntry(43, 105)
	if _, err := svc.Approve(context.Background(), "tok", Actor{ID: 105}, 43); err != nil {
		t.Errorf("мутация другой записи заблокирована: %v", err)
	}
}

// TestMutate_AuditFailureDoesNotFail: недоступный журнал аудита
// не проваливает действие.
func TestMutate_AuditFailureDoesNotFail(t *testing.T) {
	mock := newVMSMock()
	mock.entries[42] = pendingEntry(42, 105)
	svc, audit := newTestEntryService(t, mock)
	audit.fail = true

	if _, err := svc.Approve(context.Background(), "tok", Actor{ID: 105}, 42); err != nil {
		t.Fatalf("действие провалено из-за журнала аудита: %v", err)
	}
}

// TestGet_NotFound: 404 ядра транслируется в ErrNotFound.
func TestGet_NotFound(t *testing.T) {
	mock := newVMSMock()
	svc, _ := newTestEntryService(t, mock)

	_, err := svc.Get(context.Background(), "tok", 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}
