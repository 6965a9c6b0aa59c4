package transport

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"catalog-cms/internal/ingest"
	"catalog-cms/internal/middleware"
	"catalog-cms/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBatchBytes bounds an inline import body
const maxBatchBytes = 32 << 20

// VerifyPasswordRequest represents the admin password check payload
type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// VerifyPasswordResponse carries the issued session token
type VerifyPasswordResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PasswordStatusResponse reports whether the admin password is configured
type PasswordStatusResponse struct {
	PasswordExists bool `json:"passwordExists"`
}

// BatchSource loads the configured seed files
type BatchSource func() (ingest.Batch, error)

// AdminHandler serves the session and import endpoints of the admin panel
type AdminHandler struct {
	auth    service.AuthService
	imports service.ImportService
	source  BatchSource
	logger  *zap.Logger
}

func NewAdminHandler(auth service.AuthService, imports service.ImportService, source BatchSource, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		auth:    auth,
		imports: imports,
		source:  source,
		logger:  logger,
	}
}

// RegisterRoutes registers the admin routes. loginLimit may be nil.
func (h *AdminHandler) RegisterRoutes(r chi.Router, adminAuth, loginLimit func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/password-status", h.PasswordStatus)

		r.Group(func(r chi.Router) {
			if loginLimit != nil {
				r.Use(loginLimit)
			}
			r.Post("/verify-password", h.VerifyPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminAuth)
			r.Post("/import", h.Import)
			r.Post("/reinit-db", h.Reinit)
		})
	})
}

func (h *AdminHandler) PasswordStatus(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, PasswordStatusResponse{PasswordExists: h.auth.Configured()})
}

// VerifyPassword exchanges the admin password for a session token
func (h *AdminHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyPasswordRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Password check validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := h.auth.Login(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.logger.Warn("Admin password rejected", zap.String("remote_addr", r.RemoteAddr))
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid password")
		case errors.Is(err, service.ErrAuthNotConfigured):
			middleware.RespondWithError(w, http.StatusServiceUnavailable, "admin password is not configured")
		default:
			h.logger.Error("Failed to issue admin session", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to verify password")
		}
		return
	}

	h.logger.Info("Admin session issued", zap.Time("expires_at", expiresAt))
	middleware.RespondWithJSON(w, http.StatusOK, VerifyPasswordResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Import synchronizes the store with a batch given in the body or, when the
// body is empty, with the configured seed files.
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.readBatch(w, r)
	if !ok {
		return
	}

	report, err := h.imports.Sync(r.Context(), batch)
	h.respondWithReport(w, report, err)
}

// Reinit empties both tables and imports the seed files again
func (h *AdminHandler) Reinit(w http.ResponseWriter, r *http.Request) {
	batch, err := h.source()
	if err != nil {
		h.respondWithSourceError(w, err)
		return
	}

	report, err := h.imports.Reset(r.Context(), batch)
	h.respondWithReport(w, report, err)
}

func (h *AdminHandler) readBatch(w http.ResponseWriter, r *http.Request) (ingest.Batch, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "import body is too large")
		return ingest.Batch{}, false
	}

	if len(bytes.TrimSpace(body)) == 0 {
		batch, err := h.source()
		if err != nil {
			h.respondWithSourceError(w, err)
			return ingest.Batch{}, false
		}
		return batch, true
	}

	batch, err := ingest.DecodeBatch(bytes.NewReader(body))
	if err != nil {
		h.logger.Debug("Import body decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "import body must be an object with products and/or articles arrays")
		return ingest.Batch{}, false
	}
	if batch.Empty() {
		middleware.RespondWithError(w, http.StatusBadRequest, "import body names neither products nor articles")
		return ingest.Batch{}, false
	}
	return batch, true
}

func (h *AdminHandler) respondWithSourceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrSourceNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "no seed files found")
		return
	}
	h.logger.Error("Failed to read seed files", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read seed files")
}

// respondWithReport returns the report even when the run was aborted, so the
// caller sees what was applied before the failure.
func (h *AdminHandler) respondWithReport(w http.ResponseWriter, report *service.Report, err error) {
	if err != nil {
		h.logger.Error("Import aborted", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError, "import aborted", map[string]interface{}{
			"report": report,
		})
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, report)
}
