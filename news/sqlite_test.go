package news

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLitePragmasOnEveryConnection(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	// two live connections force the pool to open a second one
	first, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout))
		assert.Equal(t, 5000, timeout)
		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
		assert.Equal(t, "wal", mode)
	}
}

func sampleArticle(title string) NewArticle {
	return NewArticle{
		Title:    title,
		Summary:  "Ringkasan",
		Content:  "<p>Isi berita</p>",
		Category: CategoryPolitics,
		ImageURL: "https://example.com/a.png",
		Author:   "Redaksi",
	}
}

func TestSQLiteCreateAndGet(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	in := sampleArticle("Perda Transparansi Anggaran")
	in.IsBreaking = true
	in.AdditionalImageURLs = []string{"https://example.com/b.png"}
	created, err := s.CreateArticle(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Regexp(t, `^perda-transparansi-anggaran-[a-z0-9]{5}$`, created.Slug)
	assert.Zero(t, created.Views)

	bySlug, err := s.ArticleBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
	assert.True(t, bySlug.IsBreaking)
	assert.Equal(t, CategoryPolitics, bySlug.Category)
	assert.Equal(t, []string{"https://example.com/b.png"}, bySlug.AdditionalImageURLs)

	byID, err := s.ArticleByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Slug, byID.Slug)
}

func TestSQLiteKeepsExplicitSlug(t *testing.T) {
	s := setupSQLite(t)
	in := sampleArticle("Judul")
	in.Slug = "slug-tetap"
	created, err := s.CreateArticle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "slug-tetap", created.Slug)

	_, err = s.CreateArticle(context.Background(), in)
	assert.Error(t, err, "duplicate slug must be rejected")
}

func TestSQLiteRejectsInvalidArticle(t *testing.T) {
	s := setupSQLite(t)
	in := sampleArticle("Judul")
	in.Category = "Olahraga"
	_, err := s.CreateArticle(context.Background(), in)
	assert.Error(t, err)
}

func TestSQLiteListNewestFirst(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i, title := range []string{"Pertama", "Kedua", "Ketiga"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		_, err := s.CreateArticle(ctx, sampleArticle(title))
		require.NoError(t, err)
	}

	list, err := s.ListArticles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ketiga", list[0].Title)
	assert.Equal(t, "Kedua", list[1].Title)
}

func TestSQLiteDelete(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	created, err := s.CreateArticle(ctx, sampleArticle("Hapus Saya"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteArticle(ctx, created.ID))
	_, err = s.ArticleByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteArticle(ctx, created.ID), ErrNotFound)
}

func TestSQLiteSettings(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)

	require.NoError(t, s.SaveSettings(ctx, Settings{SiteName: "Pamong", AIAPIKey: "sk-test"}))
	got, err = s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pamong", got.SiteName)
	assert.Equal(t, "sk-test", got.AIAPIKey)
	assert.Equal(t, DefaultSettings().AISystemInstruction, got.AISystemInstruction)
}
