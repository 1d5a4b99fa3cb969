// Package store persists scraped products, their summaries and comparison
// history in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	url             TEXT NOT NULL UNIQUE,
	title           TEXT NOT NULL,
	price           TEXT,
	description     TEXT,
	raw_text        TEXT,
	cta_buttons     TEXT NOT NULL DEFAULT '[]',
	review_snippets TEXT NOT NULL DEFAULT '[]',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_url ON products(url);

CREATE TABLE IF NOT EXISTS summaries (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id   INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	summary_data TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_product ON summaries(product_id);

CREATE TABLE IF NOT EXISTS comparisons (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	question        TEXT NOT NULL,
	without_context TEXT NOT NULL,
	with_context    TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);
`

// Store wraps the sqlite database. Safe for concurrent use.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens (creating if needed) the database at cfg.Path and applies the
// schema.
func Open(cfg config.StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Path, err)
	}
	// The driver is in-process; a single connection avoids sqlite write
	// contention entirely.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, sb: sq.StatementBuilder.RunWith(db)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProduct upserts a product by URL and replaces its summary. Returns the
// product's row ID.
func (s *Store) SaveProduct(ctx context.Context, p *models.Product, summary *models.Summary) (int64, error) {
	ctaJSON, err := json.Marshal(orEmpty(p.CTAButtons))
	if err != nil {
		return 0, err
	}
	reviewJSON, err := json.Marshal(orEmptyStr(p.ReviewSnippets))
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	now := time.Now().Unix()

	_, err = sq.Insert("products").
		Columns("url", "title", "price", "description", "raw_text", "cta_buttons", "review_snippets", "created_at").
		Values(p.URL, p.Title, p.Price, p.Description, p.RawText, string(ctaJSON), string(reviewJSON), now).
		Suffix(`ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			description = excluded.description,
			raw_text = excluded.raw_text,
			cta_buttons = excluded.cta_buttons,
			review_snippets = excluded.review_snippets`).
		RunWith(tx).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert product: %w", err)
	}

	var id int64
	err = sq.Select("id").From("products").Where(sq.Eq{"url": p.URL}).
		RunWith(tx).QueryRowContext(ctx).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve product id: %w", err)
	}

	if summary != nil {
		if _, err := sq.Delete("summaries").Where(sq.Eq{"product_id": id}).
			RunWith(tx).ExecContext(ctx); err != nil {
			return 0, fmt.Errorf("clear old summary: %w", err)
		}
		summaryJSON, err := json.Marshal(summary)
		if err != nil {
			return 0, err
		}
		if _, err := sq.Insert("summaries").
			Columns("product_id", "summary_data", "created_at").
			Values(id, string(summaryJSON), now).
			RunWith(tx).ExecContext(ctx); err != nil {
			return 0, fmt.Errorf("insert summary: %w", err)
		}
	}

	return id, tx.Commit()
}

// GetProductByURL returns the stored product for a URL, or nil when the URL
// has not been indexed.
func (s *Store) GetProductByURL(ctx context.Context, url string) (*models.StoredProduct, error) {
	return s.queryOne(ctx, sq.Eq{"p.url": url})
}

// GetProduct returns the stored product by row ID, or nil when absent.
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.StoredProduct, error) {
	return s.queryOne(ctx, sq.Eq{"p.id": id})
}

func (s *Store) queryOne(ctx context.Context, where sq.Eq) (*models.StoredProduct, error) {
	row := s.productQuery().Where(where).QueryRowContext(ctx)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListProducts returns all indexed products, newest first.
func (s *Store) ListProducts(ctx context.Context) ([]models.StoredProduct, error) {
	rows, err := s.productQuery().OrderBy("p.created_at DESC", "p.id DESC").QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.StoredProduct{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeleteProduct removes a product and (via cascade) its summary. Returns
// false when no such product exists.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	res, err := s.sb.Delete("products").Where(sq.Eq{"id": id}).ExecContext(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListSummaries returns every product that has a summary, the input to the
// catalog generator.
func (s *Store) ListSummaries(ctx context.Context) ([]models.ProductSummary, error) {
	rows, err := s.sb.Select("p.url", "s.summary_data").
		From("products p").
		Join("summaries s ON s.product_id = p.id").
		OrderBy("p.created_at DESC", "p.id DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ProductSummary{}
	for rows.Next() {
		var ps models.ProductSummary
		var raw string
		if err := rows.Scan(&ps.ProductURL, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &ps.Summary); err != nil {
			return nil, fmt.Errorf("decode summary for %s: %w", ps.ProductURL, err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// SaveComparison persists one with/without-context comparison.
func (s *Store) SaveComparison(ctx context.Context, c *models.Comparison) (int64, error) {
	res, err := s.sb.Insert("comparisons").
		Columns("question", "without_context", "with_context", "created_at").
		Values(c.Question, c.WithoutContext, c.WithContext, time.Now().Unix()).
		ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListComparisons returns the most recent comparisons, capped at limit.
func (s *Store) ListComparisons(ctx context.Context, limit uint64) ([]models.Comparison, error) {
	rows, err := s.sb.Select("id", "question", "without_context", "with_context", "created_at").
		From("comparisons").
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Comparison{}
	for rows.Next() {
		var c models.Comparison
		var created int64
		if err := rows.Scan(&c.ID, &c.Question, &c.WithoutContext, &c.WithContext, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) productQuery() sq.SelectBuilder {
	return s.sb.Select(
		"p.id", "p.url", "p.title", "p.price", "p.description",
		"p.cta_buttons", "p.review_snippets", "p.created_at", "s.summary_data").
		From("products p").
		LeftJoin("summaries s ON s.product_id = p.id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.StoredProduct, error) {
	var p models.StoredProduct
	var ctaJSON, reviewJSON string
	var summaryJSON sql.NullString
	var created int64

	err := row.Scan(&p.ID, &p.URL, &p.Title, &p.Price, &p.Description,
		&ctaJSON, &reviewJSON, &created, &summaryJSON)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = time.Unix(created, 0).UTC()
	if err := json.Unmarshal([]byte(ctaJSON), &p.CTAButtons); err != nil {
		return nil, fmt.Errorf("decode cta_buttons: %w", err)
	}
	if err := json.Unmarshal([]byte(reviewJSON), &p.ReviewSnippets); err != nil {
		return nil, fmt.Errorf("decode review_snippets: %w", err)
	}
	if summaryJSON.Valid {
		var s models.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &s); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		p.Summary = &s
	}
	return &p, nil
}

func orEmpty(v []models.CTAButton) []models.CTAButton {
	if v == nil {
		return []models.CTAButton{}
	}
	return v
}

func orEmptyStr(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
