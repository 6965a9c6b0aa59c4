package transport

import (
	"net/http"
	"strings"

	"catalog-cms/internal/middleware"
	"catalog-cms/internal/repository"
	"catalog-cms/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ArticleHandler handles HTTP requests for articles
type ArticleHandler struct {
	articles service.ArticleService
	logger   *zap.Logger
}

func NewArticleHandler(articles service.ArticleService, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
		logger:   logger,
	}
}

func (h *ArticleHandler) RegisterRoutes(r chi.Router, adminAuth func(http.Handler) http.Handler) {
	r.Route("/api/articles", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(adminAuth)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List returns articles newest first, filtered by ?category= (exact) and ?q=
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ArticleFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Query:    strings.TrimSpace(query.Get("q")),
	}

	articles, err := h.articles.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "list articles")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, articles)
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "get article")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	record, err := decodeRecord(r)
	if err != nil {
		h.logger.Debug("Article decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	article, err := h.articles.Create(r.Context(), record)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "create article")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, article)
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	record, err := decodeRecord(r)
	if err != nil {
		h.logger.Debug("Article decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	article, err := h.articles.Update(r.Context(), chi.URLParam(r, "id"), record)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update article")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.articles.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "delete article")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "article deleted", "id": id})
}
