package news

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// sqliteTimeFormat is fixed width so created_at sorts lexically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the local article store used when no hosted database is configured.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	// pragmas in the DSN apply to every pooled connection, not just the first
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLite{db: db, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the idempotent schema.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateArticle(ctx context.Context, in NewArticle) (Article, error) {
	a, err := prepare(in, s.now())
	if err != nil {
		return Article{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (id, title, slug, summary, content, category, image_url, additional_image_urls, author, created_at, is_breaking, views)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`, a.ID, a.Title, a.Slug, a.Summary, a.Content, string(a.Category), a.ImageURL,
		encodeURLs(a.AdditionalImageURLs), a.Author, a.CreatedAt.UTC().Format(sqliteTimeFormat), a.IsBreaking, a.Views,
	)
	if err != nil {
		return Article{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

const sqliteArticleColumns = `id, title, slug, summary, content, category, image_url, additional_image_urls, author, created_at, is_breaking, views`

func (s *SQLite) ListArticles(ctx context.Context, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteArticleColumns+` FROM articles ORDER BY created_at DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Article
	for rows.Next() {
		a, err := scanSQLiteArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) ArticleBySlug(ctx context.Context, slug string) (Article, error) {
	return scanSQLiteArticle(s.db.QueryRowContext(ctx, `SELECT `+sqliteArticleColumns+` FROM articles WHERE slug=?`, slug))
}

func (s *SQLite) ArticleByID(ctx context.Context, id string) (Article, error) {
	return scanSQLiteArticle(s.db.QueryRowContext(ctx, `SELECT `+sqliteArticleColumns+` FROM articles WHERE id=?`, id))
}

func (s *SQLite) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT site_name, site_description, ai_system_instruction, ai_api_key
		FROM settings WHERE id=1
	`).Scan(&out.SiteName, &out.SiteDescription, &out.AISystemInstruction, &out.AIAPIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return out.withDefaults(), nil
}

func (s *SQLite) SaveSettings(ctx context.Context, in Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, site_name, site_description, ai_system_instruction, ai_api_key, updated_at)
		VALUES (1,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
		  site_name=excluded.site_name,
		  site_description=excluded.site_description,
		  ai_system_instruction=excluded.ai_system_instruction,
		  ai_api_key=excluded.ai_api_key,
		  updated_at=excluded.updated_at
	`, in.SiteName, in.SiteDescription, in.AISystemInstruction, in.AIAPIKey, s.now().UTC().Format(sqliteTimeFormat))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteArticle(row rowScanner) (Article, error) {
	var a Article
	var category, urls, created string
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Summary, &a.Content, &category, &a.ImageURL, &urls, &a.Author, &created, &a.IsBreaking, &a.Views)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, err
	}
	a.Category = Category(category)
	a.AdditionalImageURLs = decodeURLs(urls)
	a.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Article{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return a, nil
}
