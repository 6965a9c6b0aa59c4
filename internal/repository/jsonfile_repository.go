package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"catalog-cms/internal/atomicfile"
	"catalog-cms/internal/catalog"
	"catalog-cms/internal/database"
	"catalog-cms/internal/domain"
	"catalog-cms/internal/ingest"

	"github.com/spf13/cast"
)

// fileStore keeps a whole table in memory in insertion order and rewrites
// the backing JSON array after every mutation.
type fileStore[T any] struct {
	mu    sync.Mutex
	path  string
	items []*T
	id    func(*T) string
}

func (s *fileStore[T]) index(id string) int {
	for i, item := range s.items {
		if s.id(item) == id {
			return i
		}
	}
	return -1
}

// commit persists next and only then makes it the current table.
func (s *fileStore[T]) commit(next []*T) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.path, err)
	}
	if err := atomicfile.WriteFile(s.path, data, 0o644); err != nil {
		return err
	}
	s.items = next
	return nil
}

func (s *fileStore[T]) insert(item *T, exists error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(s.id(item)) >= 0 {
		return exists
	}
	return s.commit(append(slices.Clone(s.items), item))
}

func (s *fileStore[T]) replace(item *T, missing error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(s.id(item))
	if i < 0 {
		return missing
	}
	next := slices.Clone(s.items)
	next[i] = item
	return s.commit(next)
}

func (s *fileStore[T]) delete(id string, missing error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return missing
	}
	return s.commit(slices.Delete(slices.Clone(s.items), i, i+1))
}

func (s *fileStore[T]) get(id string) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.items[i], true
}

// newestFirst returns the items accepted by keep in reverse insertion order.
func (s *fileStore[T]) newestFirst(keep func(*T) bool) []*T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*T, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		if keep(s.items[i]) {
			out = append(out, s.items[i])
		}
	}
	return out
}

func (s *fileStore[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *fileStore[T]) clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	if err := s.commit([]*T{}); err != nil {
		return 0, err
	}
	return n, nil
}

// loadRecords reads the backing file. A missing file is an empty table.
func loadRecords(path string) ([]map[string]any, error) {
	records, err := ingest.ReadRecords(path)
	if errors.Is(err, ingest.ErrSourceNotFound) {
		return nil, nil
	}
	return records, err
}

func recordTime(rec map[string]any, key string) time.Time {
	t, err := cast.ToTimeE(rec[key])
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func containsFolded(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(database.Fold(f), q) {
			return true
		}
	}
	return false
}

type jsonProductRepository struct {
	store fileStore[domain.Product]
}

// NewJSONProductRepository creates a ProductRepository backed by a JSON
// array file. Records without an id and repeated ids are dropped on load.
func NewJSONProductRepository(path string) (ProductRepository, error) {
	records, err := loadRecords(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	r := &jsonProductRepository{store: fileStore[domain.Product]{
		path:  path,
		items: []*domain.Product{},
		id:    func(p *domain.Product) string { return p.ID },
	}}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		p, _ := catalog.ProductFromRecord(rec)
		if p.ID == "" || r.store.index(p.ID) >= 0 {
			continue
		}
		p.CreatedAt = recordTime(rec, "createdAt")
		p.UpdatedAt = recordTime(rec, "updatedAt")
		r.store.items = append(r.store.items, p)
	}
	return r, nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.SKU = slices.Clone(p.SKU)
	cp.Photos = nonNilList(slices.Clone(p.Photos))
	cp.Characteristics = maps.Clone(p.Characteristics)
	return &cp
}

func (r *jsonProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := r.store.get(id)
	if !ok {
		return nil, ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *jsonProductRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	q := database.Fold(strings.TrimSpace(filter.Query))
	items := r.store.newestFirst(func(p *domain.Product) bool {
		return q == "" || containsFolded(q, p.Title, strings.Join(p.SKU, " "), p.Category, p.Description)
	})
	for i, p := range items {
		items[i] = cloneProduct(p)
	}
	return items, nil
}

func (r *jsonProductRepository) Insert(ctx context.Context, product *domain.Product) error {
	return r.store.insert(cloneProduct(product), ErrProductAlreadyExists)
}

func (r *jsonProductRepository) Replace(ctx context.Context, product *domain.Product) error {
	return r.store.replace(cloneProduct(product), ErrProductNotFound)
}

func (r *jsonProductRepository) Delete(ctx context.Context, id string) error {
	return r.store.delete(id, ErrProductNotFound)
}

func (r *jsonProductRepository) Count(ctx context.Context) (int, error) {
	return r.store.count(), nil
}

func (r *jsonProductRepository) DeleteAll(ctx context.Context) (int, error) {
	return r.store.clear()
}

type jsonArticleRepository struct {
	store fileStore[domain.Article]
}

// NewJSONArticleRepository creates an ArticleRepository backed by a JSON
// array file.
func NewJSONArticleRepository(path string) (ArticleRepository, error) {
	records, err := loadRecords(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}

	r := &jsonArticleRepository{store: fileStore[domain.Article]{
		path:  path,
		items: []*domain.Article{},
		id:    func(a *domain.Article) string { return a.ID },
	}}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		a, _ := catalog.ArticleFromRecord(rec)
		if a.ID == "" || r.store.index(a.ID) >= 0 {
			continue
		}
		a.CreatedAt = recordTime(rec, "createdAt")
		a.UpdatedAt = recordTime(rec, "updatedAt")
		r.store.items = append(r.store.items, a)
	}
	return r, nil
}

func cloneArticle(a *domain.Article) *domain.Article {
	cp := *a
	cp.Content = slices.Clone(a.Content)
	return &cp
}

func (r *jsonArticleRepository) Get(ctx context.Context, id string) (*domain.Article, error) {
	a, ok := r.store.get(id)
	if !ok {
		return nil, ErrArticleNotFound
	}
	return cloneArticle(a), nil
}

func (r *jsonArticleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, error) {
	category := strings.TrimSpace(filter.Category)
	q := database.Fold(strings.TrimSpace(filter.Query))
	items := r.store.newestFirst(func(a *domain.Article) bool {
		if category != "" && a.Category != category {
			return false
		}
		return q == "" || containsFolded(q, a.Title, a.Category, a.Excerpt)
	})
	for i, a := range items {
		items[i] = cloneArticle(a)
	}
	return items, nil
}

func (r *jsonArticleRepository) Insert(ctx context.Context, article *domain.Article) error {
	return r.store.insert(cloneArticle(article), ErrArticleAlreadyExists)
}

func (r *jsonArticleRepository) Replace(ctx context.Context, article *domain.Article) error {
	return r.store.replace(cloneArticle(article), ErrArticleNotFound)
}

func (r *jsonArticleRepository) Delete(ctx context.Context, id string) error {
	return r.store.delete(id, ErrArticleNotFound)
}

func (r *jsonArticleRepository) Count(ctx context.Context) (int, error) {
	return r.store.count(), nil
}

func (r *jsonArticleRepository) DeleteAll(ctx context.Context) (int, error) {
	return r.store.clear()
}
