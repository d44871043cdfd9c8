// Пакет vmsclient — HTTP-клиент к API ядра VMS.
// Списочные операции возвращают сырой декодированный JSON (any): разные
// версии ядра отдают поля в PascalCase/camelCase/lowercase и в разных
// конвертах, приведением формы занимается пакет normalize.
// Поддерживает TLS с кастомным CA (AC_VMS_CA_CERT_PATH).
package vmsclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// TokenProvider — функция, возвращающая JWT для авторизации запросов к ядру.
// Для фоновых задач токен получается через Client Credentials flow,
// для пользовательских запросов — пробрасывается токен пользователя.
type TokenProvider func(ctx context.Context) (string, error)

// APIError — ошибка API ядра VMS с HTTP-статусом и человекочитаемым
// сообщением сервера, если его удалось извлечь из тела ответа.
type APIError struct {
	StatusCode int
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("ядро VMS вернуло статус %d: %s", e.StatusCode, e.Message)
}

// messageKeys — кандидаты полей с сообщением об ошибке в теле ответа ядра.
var messageKeys = []string{"message", "Message", "error", "title"}

// newAPIError строит APIError из ответа ядра, выуживая сообщение из тела.
func newAPIError(statusCode int, body []byte) *APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

// extractMessage пытается извлечь сообщение сервера из JSON-тела ошибки.
// Перебирает кандидатов полей; значение может быть строкой или вложенным
// объектом с полем message.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range messageKeys {
		val, ok := payload[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}

// Client — HTTP-клиент к API ядра VMS.
type Client struct {
	baseURL    string // Базовый URL ядра (без trailing slash)
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент к ядру VMS.
// baseURL — базовый URL ядра (например, https://vms.propusk.lan).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, caCertPath string, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата ядра VMS: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат ядра VMS добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "vms_client")),
	}, nil
}

// NewWithHTTPClient создаёт клиент с предоставленным http.Client.
// Используется в тестах.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "vms_client")),
	}
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// --- HTTP helpers ---

// do выполняет HTTP-запрос к ядру с bearer-авторизацией и декодирует
// JSON-ответ в any. Для ответов без тела (204) возвращает nil.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (any, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос %s %s к ядру VMS: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	if len(respBody) == 0 {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("декодирование ответа %s %s: %w", method, path, err)
	}
	return payload, nil
}

// --- Списочные операции ---

// ListVisitors возвращает сырой список посетителей.
// GET /api/v1/visitors
func (c *Client) ListVisitors(ctx context.Context, token string) (any, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/visitors", token, nil)
}

// ListVisitorEntries возвращает сырой список записей пропусков.
// GET /api/v1/visitor-entries
func (c *Client) ListVisitorEntries(ctx context.Context, token string) (any, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/visitor-entries", token, nil)
}

// ListUsers возвращает сырой список пользователей.
// GET /api/v1/users
func (c *Client) ListUsers(ctx context.Context, token string) (any, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/users", token, nil)
}

// ListRoles возвращает сырой список ролей.
// GET /api/v1/roles
func (c *Client) ListRoles(ctx context.Context, token string) (any, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/roles", token, nil)
}

// ListDepartments возвращает сырой список подразделений.
// GET /api/v1/departments
func (c *Client) ListDepartments(ctx context.Context, token string) (any, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/departments", token, nil)
}

// --- Точечные операции ---

// GetVisitorEntry возвращает сырую запись пропуска по идентификатору.
// Используется для чтения исходных значений перед мутациями.
// GET /api/v1/visitor-entries/{id}
func (c *Client) GetVisitorEntry(ctx context.Context, token string, id int64) (any, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/visitor-entries/%d", id), token, nil)
}

// UpdateVisitorEntry отправляет полную запись пропуска на обновление.
// PUT /api/v1/visitor-entries/{id}
func (c *Client) UpdateVisitorEntry(ctx context.Context, token string, id int64, record any) (any, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/visitor-entries/%d", id), token, record)
}

// CreateUser создаёт пользователя.
// POST /api/v1/users
func (c *Client) CreateUser(ctx context.Context, token string, record any) (any, error) {
	return c.do(ctx, http.MethodPost, "/api/v1/users", token, record)
}

// UpdateUser обновляет пользователя.
// PUT /api/v1/users/{id}
func (c *Client) UpdateUser(ctx context.Context, token string, id int64, record any) (any, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id), token, record)
}

// DeleteUser удаляет пользователя.
// DELETE /api/v1/users/{id}
func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", id), token, nil)
	return err
}

// ImportUsers пересылает XLSX-файл массового импорта пользователей в ядро.
// POST /api/v1/users/import (multipart/form-data, поле file)
func (c *Client) ImportUsers(ctx context.Context, token, filename string, file io.Reader) (any, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("подготовка multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("копирование файла импорта: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("завершение multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/users/import", &buf)
	if err != nil {
		return nil, fmt.Errorf("создание запроса импорта: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос импорта пользователей: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа импорта: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	if len(respBody) == 0 {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("декодирование ответа импорта: %w", err)
	}
	return payload, nil
}

// --- ReadinessChecker для ядра VMS ---

// ReadinessChecker — проверка доступности ядра VMS.
type ReadinessChecker struct {
	client *Client
}

// NewReadinessChecker создаёт checker доступности ядра VMS.
func (c *Client) NewReadinessChecker() *ReadinessChecker {
	return &ReadinessChecker{client: c}
}

// CheckReady проверяет доступность health endpoint ядра.
func (r *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.client.baseURL+"/health", http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}

	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("ядро VMS недоступно: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "degraded", fmt.Sprintf("ядро VMS вернуло статус %d", resp.StatusCode)
	}
	return "ok", "ядро VMS доступно"
}
