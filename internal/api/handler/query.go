package handler

import (
	"net/http"
	"strconv"

	"github.com/Rrens/sqlgate/internal/api/response"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/service"
)

// QueryHandler handles validation and execution endpoints
type QueryHandler struct {
	queryService *service.QueryService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queryService *service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Validate returns the engine's verdict. A rejected query is still a 200.
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.queryService.Validate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, result)
}

// Execute validates and runs a query against a registered connection
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req domain.ExecuteRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.queryService.Execute(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, result)
}

// History lists the recent queries of a connection
func (h *QueryHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.queryService.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, entries)
}
