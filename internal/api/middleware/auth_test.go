package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/propusk/admin-console/internal/domain/rbac"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key-ac"

// testIssuer — issuer JWT для тестов.
const testIssuer = "https://vms.test"

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	nB64 := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	eB64 := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   nB64,
				"e":   eB64,
			},
		},
	}

	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestJWTAuth создаёт JWTAuth для тестов.
func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	jwksJSON := buildJWKSetJSON(&key.PublicKey, testKeyID)
	kf, err := keyfunc.NewJWKSetJSON(jwksJSON)
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}

	return NewJWTAuthWithKeyfunc(
		kf,
		testIssuer,
		[]string{"propusk-admins"},
		[]string{"propusk-security"},
		testLogger(),
	)
}

// generateToken генерирует JWT пользователя консоли.
func generateToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims, expired bool) string {
	t.Helper()

	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}

	base := jwt.MapClaims{
		"iss": testIssuer,
		"exp": jwt.NewNumericDate(exp),
		"nbf": jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	for k, v := range claims {
		base[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, base)
	token.Header["kid"] = testKeyID
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tokenStr
}

// doRequest прогоняет запрос через middleware и возвращает записанные claims.
func doRequest(t *testing.T, auth *JWTAuth, authHeader string) (*httptest.ResponseRecorder, *AuthClaims) {
	t.Helper()

	var captured *AuthClaims
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

// TestMiddleware_ValidToken: валидный токен проходит, claims в контексте.
func TestMiddleware_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	token := generateToken(t, key, jwt.MapClaims{
		"sub":                "42",
		"userid":             42,
		"preferred_username": "ivanov",
		"email":              "ivanov@propusk.lan",
		"groups":             []string{"propusk-security"},
	}, false)

	rec, claims := doRequest(t, auth, "Bearer "+token)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if claims == nil {
		t.Fatal("claims не попали в контекст")
	}
	if claims.UserID != 42 {
		t.Errorf("UserID: ожидалось 42, получено %d", claims.UserID)
	}
	if claims.Username != "ivanov" {
		t.Errorf("Username: ожидалось ivanov, получено %q", claims.Username)
	}
	if claims.Role != rbac.RoleSecurity {
		t.Errorf("Role: ожидалось security, получено %q", claims.Role)
	}
	if claims.RawToken != token {
		t.Error("RawToken не совпадает с исходным токеном")
	}
}

// TestMiddleware_AdminGroups: группа админов даёт роль admin.
func TestMiddleware_AdminGroups(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	token := generateToken(t, key, jwt.MapClaims{
		"sub":    "7",
		"userid": 7,
		"groups": []string{"propusk-security", "propusk-admins"},
	}, false)

	_, claims := doRequest(t, auth, "Bearer "+token)
	if claims == nil || claims.Role != rbac.RoleAdmin {
		t.Fatalf("ожидалась роль admin, получено %+v", claims)
	}
}

// TestMiddleware_RolesClaimFallback: роль берётся из claim roles,
// если группы не совпали.
func TestMiddleware_RolesClaimFallback(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	token := generateToken(t, key, jwt.MapClaims{
		"sub":    "9",
		"userid": 9,
		"roles":  []string{"security"},
	}, false)

	_, claims := doRequest(t, auth, "Bearer "+token)
	if claims == nil || claims.Role != rbac.RoleSecurity {
		t.Fatalf("ожидалась роль security из claim roles, получено %+v", claims)
	}
}

// TestMiddleware_Rejections: невалидные запросы получают 401.
func TestMiddleware_Rejections(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	otherKey := generateTestKey(t)
	wrongSignature := generateToken(t, otherKey, jwt.MapClaims{"sub": "1", "userid": 1}, false)
	expired := generateToken(t, key, jwt.MapClaims{"sub": "1", "userid": 1}, true)

	tests := []struct {
		name   string
		header string
	}{
		{"нет заголовка", ""},
		{"не Bearer", "Basic dXNlcjpwdw=="},
		{"пустой токен", "Bearer "},
		{"мусор вместо токена", "Bearer not-a-jwt"},
		{"чужая подпись", "Bearer " + wrongSignature},
		{"просроченный токен", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doRequest(t, auth, tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался 401, получен %d", rec.Code)
			}
		})
	}
}

// TestRequireRole проверяет RBAC middleware.
func TestRequireRole(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	securityToken := generateToken(t, key, jwt.MapClaims{
		"sub": "3", "userid": 3, "groups": []string{"propusk-security"},
	}, false)
	adminToken := generateToken(t, key, jwt.MapClaims{
		"sub": "4", "userid": 4, "groups": []string{"propusk-admins"},
	}, false)

	handler := auth.Middleware()(RequireRole(rbac.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	run := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := run(securityToken); code != http.StatusForbidden {
		t.Errorf("security: ожидался 403, получен %d", code)
	}
	if code := run(adminToken); code != http.StatusOK {
		t.Errorf("admin: ожидался 200, получен %d", code)
	}
}

// TestNormalizePath проверяет нормализацию путей для метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/workspace", "/api/v1/workspace"},
		{"/api/v1/entries/42", "/api/v1/entries/{id}"},
		{"/api/v1/entries/42/approve", "/api/v1/entries/{id}/approve"},
		{"/api/v1/users/105", "/api/v1/users/{id}"},
		{"/admin/js/app.js", "/admin/*"},
		{"/metrics", "/metrics"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
		}
	}
}
