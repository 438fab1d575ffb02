package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pamong_newsroom/news"
)

// MockLLM is an offline stand-in for local runs; it never calls a model.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if !prompt.JSON {
		return "<p>Contoh keluaran offline untuk: " + firstLine(prompt.User) + "</p>", nil
	}
	if strings.Contains(prompt.User, `"articles"`) {
		type item struct {
			Title       string `json:"title"`
			Content     string `json:"content"`
			Summary     string `json:"summary"`
			Category    string `json:"category"`
			ImagePrompt string `json:"imagePrompt"`
		}
		var out struct {
			Articles []item `json:"articles"`
		}
		stamp := time.Now().Format("15:04")
		for i, c := range news.Categories[:3] {
			out.Articles = append(out.Articles, item{
				Title:       fmt.Sprintf("Contoh berita %s #%d (%s)", c, i+1, stamp),
				Content:     "<p>Paragraf pertama.</p><p>Paragraf kedua.</p><p>Paragraf ketiga.</p><p>Paragraf keempat.</p>",
				Summary:     "Ringkasan contoh yang dibuat tanpa model.",
				Category:    string(c),
				ImagePrompt: "balai kota di pagi hari",
			})
		}
		b, err := json.Marshal(out)
		return string(b), err
	}
	b, err := json.Marshal(TopicDraft{Title: "Draft contoh", Content: "<p>" + firstLine(prompt.User) + "</p>"})
	return string(b), err
}

// MockImager returns a deterministic placeholder for every prompt.
type MockImager struct{}

func (MockImager) GenerateImage(_ context.Context, prompt string) (string, error) {
	return "https://picsum.photos/seed/" + news.Slugify(prompt) + "/800/450", nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
