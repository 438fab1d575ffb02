package news

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("PAMONG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PAMONG_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	created, err := p.CreateArticle(ctx, sampleArticle("Uji Postgres"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.DeleteArticle(ctx, created.ID) })

	got, err := p.ArticleBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Category, got.Category)

	_, err = p.ArticleByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
