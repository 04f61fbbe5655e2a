package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/api/response"
	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/llm"
	"github.com/Rrens/sqlgate/internal/service"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

var validate = validator.New()

// decode reads a JSON body into dst and validates it, writing a 400 on
// failure
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string)
			for _, e := range validationErrors {
				switch e.Tag() {
				case "required", "required_unless":
					fields[e.Field()] = "field is required"
				case "min":
					fields[e.Field()] = "must be at least " + e.Param()
				case "max":
					fields[e.Field()] = "must be at most " + e.Param()
				case "oneof":
					fields[e.Field()] = "must be one of: " + e.Param()
				default:
					fields[e.Field()] = "validation failed on " + e.Tag()
				}
			}
			response.BadRequest(w, fields)
			return false
		}
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

func connectionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "connectionID"))
	if err != nil {
		response.BadRequest(w, "invalid connection ID")
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors to HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *service.RejectedError
	var rejection *sqlguard.Rejection

	switch {
	case errors.As(err, &rejected):
		response.BadRequest(w, rejected.Validation)
	case errors.As(err, &rejection):
		response.BadRequest(w, rejection)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, datasource.ErrTableNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrSQLTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrUnsupportedDatabase),
		errors.Is(err, domain.ErrSuspiciousInput),
		errors.Is(err, llm.ErrProviderNotFound),
		errors.Is(err, llm.ErrProviderNotConfigured):
		response.BadRequest(w, err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, err.Error())
	}
}
