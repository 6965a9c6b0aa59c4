package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-cms/internal/catalog"
	"catalog-cms/internal/domain"
	"catalog-cms/internal/events"
	"catalog-cms/internal/ingest"
	"catalog-cms/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entity names used in reports.
const (
	EntityProduct = "product"
	EntityArticle = "article"
)

// ImportMode selects how a batch is applied.
type ImportMode string

const (
	// ModeSync merges candidates into the store, keeping edited characteristics.
	ModeSync ImportMode = "sync"
	// ModeSeed imports an entity only when its table is empty.
	ModeSeed ImportMode = "seed"
	// ModeReset empties a table and imports it again.
	ModeReset ImportMode = "reset"
)

// EntityReport counts the outcome of one entity in a batch.
type EntityReport struct {
	Inserted  int  `json:"inserted"`
	Updated   int  `json:"updated"`
	Unchanged int  `json:"unchanged"`
	Deleted   int  `json:"deleted,omitempty"`
	Skipped   bool `json:"skipped,omitempty"`
}

func (r EntityReport) changed() bool {
	return r.Inserted+r.Updated+r.Deleted > 0
}

// Failure describes one record that could not be applied.
type Failure struct {
	Entity string `json:"entity"`
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Report is the structured result of an import run.
type Report struct {
	RunID    string       `json:"runId"`
	Mode     ImportMode   `json:"mode"`
	Products EntityReport `json:"products"`
	Articles EntityReport `json:"articles"`
	Failed   []Failure    `json:"failed"`
}

// ImportService reconciles batches of candidate records with the store.
// Records are applied one by one; a failing record is reported and never
// rolls back the ones already written.
type ImportService interface {
	Sync(ctx context.Context, batch ingest.Batch) (*Report, error)
	Seed(ctx context.Context, batch ingest.Batch) (*Report, error)
	Reset(ctx context.Context, batch ingest.Batch) (*Report, error)
}

type importService struct {
	products repository.ProductRepository
	articles repository.ArticleRepository
	events   events.Publisher
	logger   *zap.Logger
	now      Clock
}

// NewImportService creates a new instance of ImportService
func NewImportService(
	products repository.ProductRepository,
	articles repository.ArticleRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) ImportService {
	return &importService{
		products: products,
		articles: articles,
		events:   publisher,
		logger:   logger,
		now:      systemClock,
	}
}

func (s *importService) Sync(ctx context.Context, batch ingest.Batch) (*Report, error) {
	return s.run(ctx, ModeSync, batch)
}

func (s *importService) Seed(ctx context.Context, batch ingest.Batch) (*Report, error) {
	return s.run(ctx, ModeSeed, batch)
}

func (s *importService) Reset(ctx context.Context, batch ingest.Batch) (*Report, error) {
	return s.run(ctx, ModeReset, batch)
}

func (s *importService) run(ctx context.Context, mode ImportMode, batch ingest.Batch) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Mode:   mode,
		Failed: []Failure{},
	}
	log := s.logger.With(zap.String("run_id", report.RunID), zap.String("mode", string(mode)))
	log.Info("Import started",
		zap.Int("products", len(batch.Products)),
		zap.Int("articles", len(batch.Articles)),
	)

	var err error
	if batch.Products != nil {
		err = reconcile(ctx, s.productTable(), mode, batch.Products, &report.Products, report, log)
		if report.Products.changed() {
			s.events.Publish(events.ProductsChanged)
		}
	}
	if err == nil && batch.Articles != nil {
		err = reconcile(ctx, s.articleTable(), mode, batch.Articles, &report.Articles, report, log)
		if report.Articles.changed() {
			s.events.Publish(events.ArticlesChanged)
		}
	}

	log.Info("Import finished",
		zap.Any("products", report.Products),
		zap.Any("articles", report.Articles),
		zap.Int("failed", len(report.Failed)),
	)
	if err != nil {
		log.Error("Import aborted", zap.Error(err))
		return report, err
	}
	return report, nil
}

// table adapts one repository to the generic reconciler.
type table[T any] struct {
	entity   string
	notFound error
	decode   func(map[string]any) (*T, catalog.Presence)
	merge    func(existing, candidate *T, present catalog.Presence) *T
	same     func(a, b *T) bool
	stamp    func(item *T, at time.Time)
	touch    func(item *T, at time.Time)
	now      Clock

	get       func(ctx context.Context, id string) (*T, error)
	insert    func(ctx context.Context, item *T) error
	replace   func(ctx context.Context, item *T) error
	count     func(ctx context.Context) (int, error)
	deleteAll func(ctx context.Context) (int, error)
}

func (s *importService) productTable() table[domain.Product] {
	return table[domain.Product]{
		entity:    EntityProduct,
		notFound:  repository.ErrProductNotFound,
		decode:    catalog.ProductFromRecord,
		merge:     mergeProduct,
		same:      catalog.SameProduct,
		stamp:     (*domain.Product).Stamp,
		touch:     (*domain.Product).Touch,
		now:       s.now,
		get:       s.products.Get,
		insert:    s.products.Insert,
		replace:   s.products.Replace,
		count:     s.products.Count,
		deleteAll: s.products.DeleteAll,
	}
}

func (s *importService) articleTable() table[domain.Article] {
	return table[domain.Article]{
		entity:    EntityArticle,
		notFound:  repository.ErrArticleNotFound,
		decode:    catalog.ArticleFromRecord,
		merge:     mergeArticle,
		same:      catalog.SameArticle,
		stamp:     (*domain.Article).Stamp,
		touch:     (*domain.Article).Touch,
		now:       s.now,
		get:       s.articles.Get,
		insert:    s.articles.Insert,
		replace:   s.articles.Replace,
		count:     s.articles.Count,
		deleteAll: s.articles.DeleteAll,
	}
}

// mergeProduct overwrites the scalar fields the candidate carries and fills
// only the characteristic gaps of the stored product.
func mergeProduct(existing, candidate *domain.Product, present catalog.Presence) *domain.Product {
	merged := *existing
	catalog.ApplyProduct(&merged, candidate, present)
	merged.Characteristics = catalog.MergeCharacteristics(existing.Characteristics, candidate.Characteristics)
	return &merged
}

func mergeArticle(existing, candidate *domain.Article, present catalog.Presence) *domain.Article {
	merged := *existing
	catalog.ApplyArticle(&merged, candidate, present)
	return &merged
}

// reconcile applies records to t. Only a storage failure that prevents the
// batch from starting, or a cancelled context, is returned as an error.
func reconcile[T any](
	ctx context.Context,
	t table[T],
	mode ImportMode,
	records []map[string]any,
	counts *EntityReport,
	report *Report,
	log *zap.Logger,
) error {
	switch mode {
	case ModeSeed:
		n, err := t.count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count %ss: %w", t.entity, err)
		}
		if n > 0 {
			counts.Skipped = true
			log.Info("Seed skipped, table is not empty", zap.String("entity", t.entity), zap.Int("rows", n))
			return nil
		}
	case ModeReset:
		n, err := t.deleteAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear %ss: %w", t.entity, err)
		}
		counts.Deleted = n
	}

	fail := func(index int, id string, reason string) {
		report.Failed = append(report.Failed, Failure{Entity: t.entity, Index: index, ID: id, Reason: reason})
		log.Warn("Record skipped",
			zap.String("entity", t.entity),
			zap.Int("index", index),
			zap.String("id", id),
			zap.String("reason", reason),
		)
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		if len(rec) == 0 {
			fail(i, "", ErrEmptyRecord.Error())
			continue
		}
		id := catalog.RecordID(rec)
		if id == "" {
			fail(i, "", ErrMissingID.Error())
			continue
		}

		candidate, present := t.decode(rec)

		existing, err := t.get(ctx, id)
		switch {
		case errors.Is(err, t.notFound):
			if err := validate.Struct(candidate); err != nil {
				fail(i, id, invalidReason(err))
				continue
			}
			t.stamp(candidate, t.now())
			if err := t.insert(ctx, candidate); err != nil {
				fail(i, id, err.Error())
				continue
			}
			counts.Inserted++
		case err != nil:
			fail(i, id, err.Error())
		default:
			merged := t.merge(existing, candidate, present)
			if t.same(merged, existing) {
				counts.Unchanged++
				continue
			}
			if err := validate.Struct(merged); err != nil {
				fail(i, id, invalidReason(err))
				continue
			}
			t.touch(merged, t.now())
			if err := t.replace(ctx, merged); err != nil {
				fail(i, id, err.Error())
				continue
			}
			counts.Updated++
		}
	}
	return nil
}

// invalidReason lists the offending fields by their JSON names.
func invalidReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field()+" failed "+e.Tag())
	}
	return "invalid record: " + strings.Join(fields, ", ")
}
