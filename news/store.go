package news

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Store persists articles and site settings.
type Store interface {
	CreateArticle(ctx context.Context, in NewArticle) (Article, error)
	ListArticles(ctx context.Context, limit int) ([]Article, error)
	ArticleBySlug(ctx context.Context, slug string) (Article, error)
	ArticleByID(ctx context.Context, id string) (Article, error)
	DeleteArticle(ctx context.Context, id string) error
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
	Close() error
}

const defaultListLimit = 50

// prepare validates the input and fills the fields the store owns.
func prepare(in NewArticle, now time.Time) (Article, error) {
	if err := in.Validate(); err != nil {
		return Article{}, err
	}
	slug := in.Slug
	if slug == "" {
		slug = UniqueSlug(in.Title)
	}
	return Article{
		ID:                  uuid.NewString(),
		Title:               in.Title,
		Slug:                slug,
		Summary:             in.Summary,
		Content:             in.Content,
		Category:            in.Category,
		ImageURL:            in.ImageURL,
		AdditionalImageURLs: in.AdditionalImageURLs,
		Author:              in.Author,
		CreatedAt:           now.UTC(),
		IsBreaking:          in.IsBreaking,
		Views:               0,
	}, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func encodeURLs(urls []string) string {
	if len(urls) == 0 {
		return "[]"
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeURLs(raw string) []string {
	if raw == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil
	}
	if len(urls) == 0 {
		return nil
	}
	return urls
}
