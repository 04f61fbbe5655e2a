package response

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("failed to write response")
	}
}

// JSON sends data with the given status
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error sends an error response. detail may be a string or any JSON value,
// such as a rejected validation result.
func Error(w http.ResponseWriter, status int, detail any) {
	write(w, status, Response{Error: detail})
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func BadRequest(w http.ResponseWriter, detail any) {
	Error(w, http.StatusBadRequest, detail)
}

func Unauthorized(w http.ResponseWriter, detail any) {
	Error(w, http.StatusUnauthorized, detail)
}

func NotFound(w http.ResponseWriter, detail any) {
	Error(w, http.StatusNotFound, detail)
}

func InternalError(w http.ResponseWriter, detail any) {
	Error(w, http.StatusInternalServerError, detail)
}
