package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"catalog-cms/internal/domain"
	"catalog-cms/internal/repository"
)

var errStorage = errors.New("disk full")

// Mock repositories for testing
type mockProductRepository struct {
	order    []string
	products map[string]*domain.Product
	failIDs  map[string]bool
	replaces int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[string]*domain.Product),
		failIDs:  make(map[string]bool),
	}
}

func (m *mockProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for i := len(m.order) - 1; i >= 0; i-- {
		cp := *m.products[m.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	if m.failIDs[p.ID] {
		return errStorage
	}
	if _, ok := m.products[p.ID]; ok {
		return repository.ErrProductAlreadyExists
	}
	cp := *p
	m.products[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockProductRepository) Replace(ctx context.Context, p *domain.Product) error {
	if m.failIDs[p.ID] {
		return errStorage
	}
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	m.replaces++
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	return len(m.products), nil
}

func (m *mockProductRepository) DeleteAll(ctx context.Context) (int, error) {
	n := len(m.products)
	m.products = make(map[string]*domain.Product)
	m.order = nil
	return n, nil
}

type mockArticleRepository struct {
	order    []string
	articles map[string]*domain.Article
}

func newMockArticleRepository() *mockArticleRepository {
	return &mockArticleRepository{articles: make(map[string]*domain.Article)}
}

func (m *mockArticleRepository) Get(ctx context.Context, id string) (*domain.Article, error) {
	a, ok := m.articles[id]
	if !ok {
		return nil, repository.ErrArticleNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockArticleRepository) List(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, error) {
	out := []*domain.Article{}
	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.articles[m.order[i]]
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockArticleRepository) Insert(ctx context.Context, a *domain.Article) error {
	if _, ok := m.articles[a.ID]; ok {
		return repository.ErrArticleAlreadyExists
	}
	cp := *a
	m.articles[a.ID] = &cp
	m.order = append(m.order, a.ID)
	return nil
}

func (m *mockArticleRepository) Replace(ctx context.Context, a *domain.Article) error {
	if _, ok := m.articles[a.ID]; !ok {
		return repository.ErrArticleNotFound
	}
	cp := *a
	m.articles[a.ID] = &cp
	return nil
}

func (m *mockArticleRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.articles[id]; !ok {
		return repository.ErrArticleNotFound
	}
	delete(m.articles, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockArticleRepository) Count(ctx context.Context) (int, error) {
	return len(m.articles), nil
}

func (m *mockArticleRepository) DeleteAll(ctx context.Context) (int, error) {
	n := len(m.articles)
	m.articles = make(map[string]*domain.Article)
	m.order = nil
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
