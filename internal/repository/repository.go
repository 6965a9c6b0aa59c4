package repository

import (
	"context"
	"errors"

	"catalog-cms/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this id already exists")
	ErrArticleNotFound      = errors.New("article not found")
	ErrArticleAlreadyExists = errors.New("article with this id already exists")
)

// ProductFilter narrows a product listing. Query matches title, sku,
// category and description case-insensitively.
type ProductFilter struct {
	Query string
}

// ArticleFilter narrows an article listing. Category is an exact match,
// Query matches title, category and excerpt.
type ArticleFilter struct {
	Category string
	Query    string
}

// ProductRepository defines the interface for product data access.
// List returns newest first by insertion order.
type ProductRepository interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	Insert(ctx context.Context, product *domain.Product) error
	Replace(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int, error)
}

// ArticleRepository defines the interface for article data access.
// List returns newest first by insertion order.
type ArticleRepository interface {
	Get(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, error)
	Insert(ctx context.Context, article *domain.Article) error
	Replace(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int, error)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
