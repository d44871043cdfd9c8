// Пакет config — загрузка и валидация конфигурации Admin Console
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Admin Console.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL (журнал аудита) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Ядро VMS ---

	// Базовый URL API ядра VMS (например, https://vms.propusk.lan)
	VMSBaseURL string
	// Client ID сервисной учётки консоли (для фоновых задач)
	VMSClientID string
	// Client Secret сервисной учётки
	VMSClientSecret string
	// Путь к CA-сертификату для TLS-соединений с ядром (опционально)
	VMSCACertPath string

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из VMSBaseURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint ядра (авто-вычисляется из VMSBaseURL, если не задан)
	JWTJWKSURL string
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration
	// Допуск рассинхронизации часов при проверке exp/nbf
	JWTLeeway time.Duration

	// --- Маппинг групп → ролей консоли ---

	// Группы IdP, дающие роль admin (через запятую)
	RoleAdminGroups []string
	// Группы IdP, дающие роль security (через запятую)
	RoleSecurityGroups []string

	// --- Фоновые задачи ---

	// Интервал обновления справочного кэша (роли, подразделения, посетители)
	RefreshInterval time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы topologymetrics
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("AC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("AC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("AC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// AC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AC_LOG_LEVEL: %w", err)
	}

	// AC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// AC_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("AC_DB_HOST")
	if err != nil {
		return nil, err
	}

	// AC_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("AC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("AC_DB_PORT: %w", err)
	}

	// AC_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("AC_DB_NAME")
	if err != nil {
		return nil, err
	}

	// AC_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("AC_DB_USER")
	if err != nil {
		return nil, err
	}

	// AC_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("AC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// AC_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("AC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("AC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Ядро VMS ---

	// AC_VMS_URL — обязательный
	cfg.VMSBaseURL, err = getEnvRequired("AC_VMS_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.VMSBaseURL = strings.TrimRight(cfg.VMSBaseURL, "/")

	// AC_VMS_CLIENT_ID — обязательный
	cfg.VMSClientID, err = getEnvRequired("AC_VMS_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// AC_VMS_CLIENT_SECRET — обязательный
	cfg.VMSClientSecret, err = getEnvRequired("AC_VMS_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// AC_VMS_CA_CERT_PATH — путь к CA-сертификату ядра (опционально)
	cfg.VMSCACertPath = getEnvDefault("AC_VMS_CA_CERT_PATH", "")

	// --- JWT ---

	// AC_JWT_ISSUER — авто-вычисляется из VMSBaseURL, если не задан
	cfg.JWTIssuer = getEnvDefault("AC_JWT_ISSUER", cfg.VMSBaseURL)

	// AC_JWT_JWKS_URL — авто-вычисляется из VMSBaseURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("AC_JWT_JWKS_URL",
		cfg.VMSBaseURL+"/.well-known/jwks.json")

	// AC_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 5m)
	cfg.JWKSRefreshInterval, err = getEnvDuration("AC_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AC_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// AC_JWT_LEEWAY — допуск рассинхронизации часов (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("AC_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_JWT_LEEWAY: %w", err)
	}

	// --- Маппинг групп → ролей ---

	// AC_ROLE_ADMIN_GROUPS — группы для роли admin (по умолчанию "propusk-admins")
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("AC_ROLE_ADMIN_GROUPS", "propusk-admins"))

	// AC_ROLE_SECURITY_GROUPS — группы для роли security (по умолчанию "propusk-security")
	cfg.RoleSecurityGroups = parseCSV(getEnvDefault("AC_ROLE_SECURITY_GROUPS", "propusk-security"))

	// --- Фоновые задачи ---

	// AC_REFRESH_INTERVAL — интервал обновления справочного кэша (по умолчанию 5m)
	cfg.RefreshInterval, err = getEnvDuration("AC_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AC_REFRESH_INTERVAL: %w", err)
	}

	// AC_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("AC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// AC_DEPHEALTH_GROUP — имя группы topologymetrics (по умолчанию "propusk")
	cfg.DephealthGroup = getEnvDefault("AC_DEPHEALTH_GROUP", "propusk")

	// --- Graceful shutdown ---

	// AC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("AC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// MigrateURL возвращает URL подключения для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
