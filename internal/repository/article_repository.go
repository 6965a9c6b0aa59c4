package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog-cms/internal/database"
	"catalog-cms/internal/domain"
)

const articleColumns = `id, category, title, excerpt, image, date, content, created_at, updated_at`

type articleRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewArticleRepository creates a SQL backed ArticleRepository
func NewArticleRepository(db *sql.DB, dialect database.Dialect) ArticleRepository {
	return &articleRepository{db: db, dialect: dialect}
}

func contentText(a *domain.Article) string {
	if len(a.Content) == 0 {
		return "[]"
	}
	return string(a.Content)
}

func (r *articleRepository) Insert(ctx context.Context, article *domain.Article) error {
	query := r.dialect.Rebind(`
		INSERT INTO articles (` + articleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		article.ID,
		article.Category,
		article.Title,
		article.Excerpt,
		article.Image,
		article.Date,
		contentText(article),
		formatTime(article.CreatedAt),
		formatTime(article.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrArticleAlreadyExists
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func (r *articleRepository) Replace(ctx context.Context, article *domain.Article) error {
	query := r.dialect.Rebind(`
		UPDATE articles
		SET category = ?, title = ?, excerpt = ?, image = ?, date = ?, content = ?,
		    created_at = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		article.Category,
		article.Title,
		article.Excerpt,
		article.Image,
		article.Date,
		contentText(article),
		formatTime(article.CreatedAt),
		formatTime(article.UpdatedAt),
		article.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (r *articleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM articles WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (r *articleRepository) Get(ctx context.Context, id string) (*domain.Article, error) {
	query := r.dialect.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE id = ?`)

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to find article by ID: %w", err)
	}
	return article, nil
}

func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, error) {
	var (
		where []string
		args  []any
	)
	if c := strings.TrimSpace(filter.Category); c != "" {
		where = append(where, "category = ?")
		args = append(args, c)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := r.dialect.ContainsArg(q)
		var or []string
		for _, col := range []string{"title", "category", "excerpt"} {
			or = append(or, r.dialect.Contains(col))
			args = append(args, pattern)
		}
		where = append(where, "("+strings.Join(or, " OR ")+")")
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := []*domain.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return articles, nil
}

func (r *articleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

func (r *articleRepository) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var (
		a                             domain.Article
		content, createdAt, updatedAt string
	)
	err := row.Scan(
		&a.ID,
		&a.Category,
		&a.Title,
		&a.Excerpt,
		&a.Image,
		&a.Date,
		&content,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Content = normalizeContent(content)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
