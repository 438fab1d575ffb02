package news

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchema string

// Postgres is the hosted article store.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn, pings it and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	p := &Postgres{pool: pool, now: time.Now}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate applies the idempotent schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateArticle(ctx context.Context, in NewArticle) (Article, error) {
	a, err := prepare(in, p.now())
	if err != nil {
		return Article{}, err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO articles (id, title, slug, summary, content, category, image_url, additional_image_urls, author, created_at, is_breaking, views)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9,$10,$11,$12)
	`, a.ID, a.Title, a.Slug, a.Summary, a.Content, string(a.Category), a.ImageURL,
		encodeURLs(a.AdditionalImageURLs), a.Author, a.CreatedAt, a.IsBreaking, a.Views,
	)
	if err != nil {
		return Article{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

const pgArticleColumns = `id, title, slug, summary, content, category, image_url, additional_image_urls::text, author, created_at, is_breaking, views`

func (p *Postgres) ListArticles(ctx context.Context, limit int) ([]Article, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgArticleColumns+` FROM articles ORDER BY created_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Article
	for rows.Next() {
		a, err := scanPgArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) ArticleBySlug(ctx context.Context, slug string) (Article, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgArticleColumns+` FROM articles WHERE slug=$1`, slug)
	return scanPgArticle(row)
}

func (p *Postgres) ArticleByID(ctx context.Context, id string) (Article, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgArticleColumns+` FROM articles WHERE id=$1`, id)
	return scanPgArticle(row)
}

func (p *Postgres) DeleteArticle(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM articles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Settings(ctx context.Context) (Settings, error) {
	var s Settings
	err := p.pool.QueryRow(ctx, `
		SELECT site_name, site_description, ai_system_instruction, ai_api_key
		FROM settings WHERE id=1
	`).Scan(&s.SiteName, &s.SiteDescription, &s.AISystemInstruction, &s.AIAPIKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return s.withDefaults(), nil
}

func (p *Postgres) SaveSettings(ctx context.Context, s Settings) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO settings (id, site_name, site_description, ai_system_instruction, ai_api_key)
		VALUES (1,$1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET
		  site_name=EXCLUDED.site_name,
		  site_description=EXCLUDED.site_description,
		  ai_system_instruction=EXCLUDED.ai_system_instruction,
		  ai_api_key=EXCLUDED.ai_api_key,
		  updated_at=now()
	`, s.SiteName, s.SiteDescription, s.AISystemInstruction, s.AIAPIKey)
	return err
}

func scanPgArticle(row pgx.Row) (Article, error) {
	var a Article
	var category, urls string
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Summary, &a.Content, &category, &a.ImageURL, &urls, &a.Author, &a.CreatedAt, &a.IsBreaking, &a.Views)
	if errors.Is(err, pgx.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, err
	}
	a.Category = Category(category)
	a.AdditionalImageURLs = decodeURLs(urls)
	return a, nil
}
