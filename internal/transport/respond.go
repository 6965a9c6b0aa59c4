package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"catalog-cms/internal/middleware"
	"catalog-cms/internal/repository"
	"catalog-cms/internal/service"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// decodeRecord reads a JSON object body. A null body yields a nil record,
// which the services reject as empty.
func decodeRecord(r *http.Request) (map[string]any, error) {
	var record map[string]any
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}

// respondWithServiceError maps service and repository errors to HTTP responses.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(validationErrors))
	case errors.Is(err, service.ErrEmptyRecord):
		middleware.RespondWithError(w, http.StatusBadRequest, "request body must be a non-empty object")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrArticleNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "article not found")
	case errors.Is(err, repository.ErrProductAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "product with this id already exists")
	case errors.Is(err, repository.ErrArticleAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "article with this id already exists")
	default:
		logger.Error("Failed to "+action, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
