// openapi.go — раздача OpenAPI контракта Admin Console.
// Контракт встроен в бинарник и валидируется при старте: сервис с
// некорректным контрактом не поднимется.
package handlers

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// OpenAPIHandler — обработчик OpenAPI контракта.
type OpenAPIHandler struct {
	doc *openapi3.T
}

// NewOpenAPIHandler загружает и валидирует встроенный контракт.
func NewOpenAPIHandler() (*OpenAPIHandler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI контракта: %w", err)
	}
	return &OpenAPIHandler{doc: doc}, nil
}

// Doc возвращает разобранный контракт.
func (h *OpenAPIHandler) Doc() *openapi3.T {
	return h.doc
}

// GetOpenAPI — GET /api/v1/openapi.yaml.
func (h *OpenAPIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}
