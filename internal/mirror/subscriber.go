package mirror

import (
	"context"
	"fmt"
	"time"

	"catalog-cms/internal/domain"
	"catalog-cms/internal/events"
	"catalog-cms/internal/repository"

	EventBus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// ProductLister is the read side of a product store.
type ProductLister interface {
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
}

// ArticleLister is the read side of an article store.
type ArticleLister interface {
	List(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, error)
}

// Subscriber regenerates the export files when the catalog changes.
// Failures are logged and never reach the mutation that caused them.
type Subscriber struct {
	writer   *Writer
	products ProductLister
	articles ArticleLister
	logger   *zap.Logger
	timeout  time.Duration
}

func NewSubscriber(writer *Writer, products ProductLister, articles ArticleLister, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		writer:   writer,
		products: products,
		articles: articles,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Subscribe registers the handlers on bus. Handlers run asynchronously and
// one at a time per topic.
func (s *Subscriber) Subscribe(bus EventBus.Bus) error {
	if err := bus.SubscribeAsync(events.ProductsChanged, s.onProductsChanged, true); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.ProductsChanged, err)
	}
	if err := bus.SubscribeAsync(events.ArticlesChanged, s.onArticlesChanged, true); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.ArticlesChanged, err)
	}
	return nil
}

func (s *Subscriber) onProductsChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.RefreshProducts(ctx); err != nil {
		s.logger.Error("Failed to refresh products mirror", zap.Error(err))
	}
}

func (s *Subscriber) onArticlesChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.RefreshArticles(ctx); err != nil {
		s.logger.Error("Failed to refresh articles mirror", zap.Error(err))
	}
}

// RefreshProducts rewrites the products export from the store, newest first.
func (s *Subscriber) RefreshProducts(ctx context.Context) error {
	products, err := s.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	if err := s.writer.WriteProducts(products); err != nil {
		return err
	}
	s.logger.Debug("Products mirror written", zap.Int("count", len(products)), zap.String("dir", s.writer.Dir()))
	return nil
}

// RefreshArticles rewrites the articles export from the store, newest first.
func (s *Subscriber) RefreshArticles(ctx context.Context) error {
	articles, err := s.articles.List(ctx, repository.ArticleFilter{})
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}
	if err := s.writer.WriteArticles(articles); err != nil {
		return err
	}
	s.logger.Debug("Articles mirror written", zap.Int("count", len(articles)), zap.String("dir", s.writer.Dir()))
	return nil
}

// RefreshAll rewrites both exports.
func (s *Subscriber) RefreshAll(ctx context.Context) error {
	if err := s.RefreshProducts(ctx); err != nil {
		return err
	}
	return s.RefreshArticles(ctx)
}
