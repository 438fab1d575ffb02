package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pamong_newsroom/news"
)

const validBatch = `{"articles":[
 {"title":"Harga Beras Naik","content":"<p>Satu.</p><p>Dua.</p>","summary":"Beras naik.","category":"Ekonomi Rakyat","imagePrompt":"pasar tradisional"},
 {"title":"Festival Budaya","content":"<p>Meriah.</p>","summary":"Festival digelar.","category":"budaya","imagePrompt":"penari tradisional"}
]}`

func TestParseDraftsWrapped(t *testing.T) {
	drafts, err := ParseDrafts(validBatch)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Harga Beras Naik", drafts[0].Title)
	assert.Equal(t, news.CategoryEconomy, drafts[0].Category)
	assert.Equal(t, news.CategoryCulture, drafts[1].Category, "category match ignores case")
	assert.Equal(t, "penari tradisional", drafts[1].ImagePrompt)
}

func TestParseDraftsBareArrayInFence(t *testing.T) {
	raw := "```json\n[{\"title\":\"A\",\"content\":\"<p>x</p>\",\"summary\":\"s\",\"category\":\"Budaya\",\"imagePrompt\":\"p\"}]\n```"
	drafts, err := ParseDrafts(raw)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "A", drafts[0].Title)
}

func TestParseDraftsEmptyBatch(t *testing.T) {
	drafts, err := ParseDrafts(`{"articles":[]}`)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestParseDraftsFailsClosed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"not json":         "Berikut lima artikel...",
		"missing articles": `{"items":[]}`,
		"wrong type":       `{"articles":[{"title":42}]}`,
		"missing title":    `{"articles":[{"content":"<p>x</p>","category":"Budaya","imagePrompt":"p"}]}`,
		"missing prompt":   `{"articles":[{"title":"A","content":"<p>x</p>","category":"Budaya"}]}`,
		"unknown category": `{"articles":[{"title":"A","content":"<p>x</p>","category":"Olahraga","imagePrompt":"p"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDrafts(raw)
			assert.Error(t, err)
		})
	}
}

func TestParseDraftsFillsSummaryAndConvertsMarkdown(t *testing.T) {
	raw := `{"articles":[{"title":"A","content":"Paragraf **pertama** yang panjang.\n\nParagraf kedua.","category":"Budaya","imagePrompt":"p"}]}`
	drafts, err := ParseDrafts(raw)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].Content, "<strong>pertama</strong>")
	assert.True(t, strings.HasPrefix(drafts[0].Content, "<p>"))
	assert.Equal(t, "Paragraf pertama yang panjang. Paragraf kedua.", drafts[0].Summary)
}

func TestDigestCutsRunes(t *testing.T) {
	assert.Equal(t, "Kopi é", Digest("<p>Kopi é enak</p>", 6))
	assert.Equal(t, "a b", Digest("<p>a</p>\n<p>b</p>", 10))
}

func TestEnsureHTMLKeepsHTML(t *testing.T) {
	out, err := EnsureHTML("<p>sudah html</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>sudah html</p>", out)
}

func TestParseTopicDraft(t *testing.T) {
	d, err := ParseTopicDraft(`{"title":"Judul","content":"<p>Isi</p>"}`)
	require.NoError(t, err)
	assert.Equal(t, "Judul", d.Title)

	_, err = ParseTopicDraft(`{"title":"Judul"}`)
	assert.Error(t, err)
}
