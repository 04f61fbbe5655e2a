package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/sqlgate/internal/api/response"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/service"
)

// ConnectionHandler handles database connection endpoints
type ConnectionHandler struct {
	connectionService *service.ConnectionService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connectionService *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService}
}

// Create handles connection creation
func (h *ConnectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.ConnectionCreate
	if !decode(w, r, &input) {
		return
	}

	conn, err := h.connectionService.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, conn)
}

// List handles listing connections
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	connections, err := h.connectionService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, connections)
}

// Get handles getting a single connection
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	conn, err := h.connectionService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, conn)
}

// Update handles connection updates
func (h *ConnectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	var input domain.ConnectionUpdate
	if !decode(w, r, &input) {
		return
	}

	conn, err := h.connectionService.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, conn)
}

// Delete handles connection deletion
func (h *ConnectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	if err := h.connectionService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	response.NoContent(w)
}

// Test checks that a connection can be opened
func (h *ConnectionHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, ok := connectionID(w, r)
	if !ok {
		return
	}

	if err := h.connectionService.Test(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		response.OK(w, map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	response.OK(w, map[string]any{
		"success": true,
		"message": "connection successful",
	})
}
