package handler

import (
	"net/http"

	"github.com/Rrens/sqlgate/internal/api/response"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/llm"
	"github.com/Rrens/sqlgate/internal/service"
)

// NL2SQLHandler handles SQL generation
type NL2SQLHandler struct {
	nl2sqlService *service.NL2SQLService
}

// NewNL2SQLHandler creates a new text-to-SQL handler
func NewNL2SQLHandler(nl2sqlService *service.NL2SQLService) *NL2SQLHandler {
	return &NL2SQLHandler{nl2sqlService: nl2sqlService}
}

// Generate writes SQL for a question and returns it with its validation.
// The SQL is not executed.
func (h *NL2SQLHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.NL2SQLRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.nl2sqlService.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, result)
}

// ListLLMProviders returns the registered LLM providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        router.ProvidersInfo(),
			"default_provider": router.DefaultProvider(),
		})
	}
}
