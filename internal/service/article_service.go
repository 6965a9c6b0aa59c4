package service

import (
	"context"
	"errors"
	"fmt"

	"catalog-cms/internal/catalog"
	"catalog-cms/internal/domain"
	"catalog-cms/internal/events"
	"catalog-cms/internal/repository"

	"go.uber.org/zap"
)

// ArticleService defines the interface for article business logic
type ArticleService interface {
	Get(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, error)
	Create(ctx context.Context, record map[string]any) (*domain.Article, error)
	Update(ctx context.Context, id string, record map[string]any) (*domain.Article, error)
	Delete(ctx context.Context, id string) error
}

type articleService struct {
	repo   repository.ArticleRepository
	events events.Publisher
	logger *zap.Logger
	now    Clock
}

// NewArticleService creates a new instance of ArticleService
func NewArticleService(repo repository.ArticleRepository, publisher events.Publisher, logger *zap.Logger) ArticleService {
	return &articleService{
		repo:   repo,
		events: publisher,
		logger: logger,
		now:    systemClock,
	}
}

func (s *articleService) Get(ctx context.Context, id string) (*domain.Article, error) {
	return s.repo.Get(ctx, id)
}

func (s *articleService) List(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, error) {
	return s.repo.List(ctx, filter)
}

func (s *articleService) Create(ctx context.Context, record map[string]any) (*domain.Article, error) {
	if len(record) == 0 {
		return nil, ErrEmptyRecord
	}

	article, _ := catalog.ArticleFromRecord(record)
	now := s.now()
	if article.ID == "" {
		id, err := newID(ctx, now, s.exists)
		if err != nil {
			return nil, err
		}
		article.ID = id
	}
	article.Stamp(now)

	if err := s.repo.Insert(ctx, article); err != nil {
		return nil, err
	}
	s.events.Publish(events.ArticlesChanged)

	s.logger.Info("Article created", zap.String("id", article.ID))
	return article, nil
}

// Update applies record as a shallow merge over the stored article.
func (s *articleService) Update(ctx context.Context, id string, record map[string]any) (*domain.Article, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	base, err := toRecord(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode article %s: %w", id, err)
	}

	updated, _ := catalog.ArticleFromRecord(overlay(base, record))
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.Touch(s.now())

	if err := s.repo.Replace(ctx, updated); err != nil {
		return nil, err
	}
	s.events.Publish(events.ArticlesChanged)

	s.logger.Info("Article updated", zap.String("id", id))
	return updated, nil
}

func (s *articleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(events.ArticlesChanged)

	s.logger.Info("Article deleted", zap.String("id", id))
	return nil
}

func (s *articleService) exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrArticleNotFound) {
		return false, nil
	}
	return err == nil, err
}
