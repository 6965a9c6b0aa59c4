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

// ProductService defines the interface for product business logic
type ProductService interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
	Create(ctx context.Context, record map[string]any) (*domain.Product, error)
	Update(ctx context.Context, id string, record map[string]any) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type productService struct {
	repo   repository.ProductRepository
	events events.Publisher
	logger *zap.Logger
	now    Clock
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository, publisher events.Publisher, logger *zap.Logger) ProductService {
	return &productService{
		repo:   repo,
		events: publisher,
		logger: logger,
		now:    systemClock,
	}
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	return s.repo.List(ctx, filter)
}

// Create normalizes record into a product. Without an id the current Unix
// milliseconds are used.
func (s *productService) Create(ctx context.Context, record map[string]any) (*domain.Product, error) {
	if len(record) == 0 {
		return nil, ErrEmptyRecord
	}

	product, _ := catalog.ProductFromRecord(record)
	now := s.now()
	if product.ID == "" {
		id, err := newID(ctx, now, s.exists)
		if err != nil {
			return nil, err
		}
		product.ID = id
	}
	product.Stamp(now)

	if err := validate.Struct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, err
	}
	s.events.Publish(events.ProductsChanged)

	s.logger.Info("Product created", zap.String("id", product.ID))
	return product, nil
}

// Update applies record as a shallow merge over the stored product and
// normalizes the result. Flat characteristic columns in record are merged
// into the stored characteristics.
func (s *productService) Update(ctx context.Context, id string, record map[string]any) (*domain.Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	base, err := toRecord(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product %s: %w", id, err)
	}
	if _, nested := record[catalog.FieldCharacteristics]; !nested && catalog.HasFlatColumns(record) {
		chars := domain.Characteristics{}
		for k, v := range existing.Characteristics {
			chars[k] = v
		}
		for k, v := range record {
			if f, ok := catalog.FieldFor(k); ok && catalog.IsColumn(k) {
				chars[f.Key] = v
			}
		}
		base[catalog.FieldCharacteristics] = chars
	}

	updated, _ := catalog.ProductFromRecord(overlay(base, record))
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.Touch(s.now())

	if err := validate.Struct(updated); err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, updated); err != nil {
		return nil, err
	}
	s.events.Publish(events.ProductsChanged)

	s.logger.Info("Product updated", zap.String("id", id))
	return updated, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(events.ProductsChanged)

	s.logger.Info("Product deleted", zap.String("id", id))
	return nil
}

func (s *productService) exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return false, nil
	}
	return err == nil, err
}
