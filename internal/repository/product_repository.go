package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog-cms/internal/catalog"
	"catalog-cms/internal/database"
	"catalog-cms/internal/domain"
)

const productColumns = `id, sku, category, title, description, price, quantity, photos, characteristics, seo, created_at, updated_at`

type productRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewProductRepository creates a SQL backed ProductRepository
func NewProductRepository(db *sql.DB, dialect database.Dialect) ProductRepository {
	return &productRepository{db: db, dialect: dialect}
}

func (r *productRepository) args(p *domain.Product) []any {
	return []any{
		encodeJSON(p.SKU, `""`),
		p.Category,
		p.Title,
		p.Description,
		p.Price,
		p.Quantity,
		encodeJSON(nonNilList(p.Photos), "[]"),
		encodeJSON(catalog.Normalize(p.Characteristics), "{}"),
		encodeJSON(p.SEO, "{}"),
	}
}

// Insert stores a new product. Insertion order defines listing order.
func (r *productRepository) Insert(ctx context.Context, product *domain.Product) error {
	query := r.dialect.Rebind(`
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	args := append([]any{product.ID}, r.args(product)...)
	args = append(args, formatTime(product.CreatedAt), formatTime(product.UpdatedAt))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Replace overwrites every stored field of an existing product.
func (r *productRepository) Replace(ctx context.Context, product *domain.Product) error {
	query := r.dialect.Rebind(`
		UPDATE products
		SET sku = ?, category = ?, title = ?, description = ?, price = ?, quantity = ?,
		    photos = ?, characteristics = ?, seo = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`)

	args := append(r.args(product), formatTime(product.CreatedAt), formatTime(product.UpdatedAt), product.ID)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	query := r.dialect.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// List returns the products matching filter, newest first.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := r.dialect.ContainsArg(q)
		for _, col := range []string{"title", "sku", "category", "description"} {
			where = append(where, r.dialect.Contains(col))
			args = append(args, pattern)
		}
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " OR ")
	}
	query += ` ORDER BY seq DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (r *productRepository) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct decodes one row. Unreadable blob columns degrade to empty
// values instead of failing the read.
func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p                                 domain.Product
		sku, photos, characteristics, seo string
		createdAt, updatedAt              string
	)
	err := row.Scan(
		&p.ID,
		&sku,
		&p.Category,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Quantity,
		&photos,
		&characteristics,
		&seo,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SKU = decodeSKU(sku)
	p.Photos = decodePhotos(photos)
	p.Characteristics = catalog.Normalize(characteristics)
	p.SEO = decodeSEO(seo)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func nonNilList(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
