package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rrens/sqlgate/internal/api/response"
	"github.com/Rrens/sqlgate/internal/service"
)

// SchemaHandler handles metadata endpoints
type SchemaHandler struct {
	schemaService *service.SchemaService
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(schemaService *service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService}
}

// Get returns the cached or fresh schema for a connection
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	schema, err := h.schemaService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, schema)
}

// Refresh forces a schema refresh for a connection
func (h *SchemaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	schema, err := h.schemaService.Refresh(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, schema)
}

// DescribeTable returns live metadata of one table
func (h *SchemaHandler) DescribeTable(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	table, err := h.schemaService.DescribeTable(r.Context(), id, chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, table)
}

// FlushCache clears every cached schema
func (h *SchemaHandler) FlushCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.schemaService.FlushAll(r.Context())
	if err != nil {
		response.InternalError(w, "failed to flush cache: "+err.Error())
		return
	}

	response.OK(w, map[string]any{
		"message":      "cache flushed successfully",
		"keys_deleted": deleted,
	})
}
