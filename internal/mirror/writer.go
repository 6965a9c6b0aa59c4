// Package mirror keeps denormalized JSON exports of the catalog tables in
// sync with the store.
package mirror

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"catalog-cms/internal/atomicfile"
	"catalog-cms/internal/catalog"
	"catalog-cms/internal/domain"
)

const (
	ProductsFile = "products.json"
	ArticlesFile = "articles.json"
)

// Writer writes whole-table snapshots into a directory. Each file is
// replaced atomically.
type Writer struct {
	dir  string
	flat bool
}

// NewWriter creates a Writer for dir. With flat set, product
// characteristics and SEO fields are exported as top-level columns.
func NewWriter(dir string, flat bool) *Writer {
	return &Writer{dir: dir, flat: flat}
}

// Dir returns the export directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteSnapshot serializes records as an indented JSON array into name.
func (w *Writer) WriteSnapshot(name string, records any) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	data = append(data, '\n')
	return atomicfile.WriteFile(filepath.Join(w.dir, name), data, 0o644)
}

// WriteProducts exports products in the given order.
func (w *Writer) WriteProducts(products []*domain.Product) error {
	if !w.flat {
		return w.WriteSnapshot(ProductsFile, nonNil(products))
	}

	rows := make([]map[string]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, flatProduct(p))
	}
	return w.WriteSnapshot(ProductsFile, rows)
}

// WriteArticles exports articles in the given order.
func (w *Writer) WriteArticles(articles []*domain.Article) error {
	return w.WriteSnapshot(ArticlesFile, nonNil(articles))
}

func flatProduct(p *domain.Product) map[string]any {
	row := map[string]any{
		"id":              p.ID,
		"sku":             p.SKU,
		"category":        p.Category,
		"title":           p.Title,
		"description":     p.Description,
		"price":           p.Price,
		"quantity":        p.Quantity,
		"photos":          p.Photos,
		"seo_title":       p.SEO.Title,
		"seo_description": p.SEO.Description,
		"seo_keywords":    p.SEO.Keywords,
		"createdAt":       p.CreatedAt,
		"updatedAt":       p.UpdatedAt,
	}
	for k, v := range catalog.Flatten(p.Characteristics) {
		if _, taken := row[k]; !taken {
			row[k] = v
		}
	}
	return row
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
