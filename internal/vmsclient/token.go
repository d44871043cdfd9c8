// token.go — получение сервисного токена ядра VMS через Client Credentials
// flow с кэшированием (обновление за 30s до истечения).
// Используется фоновыми задачами (справочный кэш), действующими без пользователя.
package vmsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenResponse — ответ endpoint'а выдачи токена ядра.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// serviceTokenSource — кэширующий источник сервисных токенов.
type serviceTokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	// Кэш токена доступа
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewServiceTokenProvider создаёт TokenProvider, получающий сервисный токен
// ядра через Client Credentials flow. Токен кэшируется и обновляется
// за 30 секунд до истечения.
func NewServiceTokenProvider(baseURL, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	src := &serviceTokenSource{
		tokenURL:     strings.TrimRight(baseURL, "/") + "/api/v1/auth/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "vms_token")),
	}
	return src.token
}

// token возвращает актуальный access token, обновляя при необходимости.
func (s *serviceTokenSource) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 30 секунд — используем его
	if s.accessToken != "" && time.Now().Add(30*time.Second).Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	token, err := s.requestToken(ctx)
	if err != nil {
		return "", err
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	s.logger.Debug("Сервисный токен ядра VMS обновлён",
		slog.Time("expires_at", s.tokenExpiry),
	)

	return s.accessToken, nil
}

// requestToken выполняет Client Credentials flow.
func (s *serviceTokenSource) requestToken(ctx context.Context) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос сервисного токена: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(resp.StatusCode, body)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование ответа токена: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("ядро вернуло пустой access_token")
	}

	return &token, nil
}
