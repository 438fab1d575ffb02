package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"pamong_newsroom/news"
)

const digestLimit = 120

var (
	fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	htmlPattern  = regexp.MustCompile(`(?i)<(p|h[1-6]|ul|ol|div|blockquote|br)\b`)
)

type rawDraft struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Summary     string `json:"summary"`
	Category    string `json:"category"`
	ImagePrompt string `json:"imagePrompt"`
}

// ParseDrafts validates the model's JSON batch. It accepts {"articles": [...]}
// or a bare array and fails on any malformed or incomplete draft.
func ParseDrafts(raw string) ([]Draft, error) {
	body := stripFence(raw)
	if body == "" {
		return nil, errors.New("model returned empty response")
	}

	var items []rawDraft
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, fmt.Errorf("decode drafts: %w", err)
		}
	} else {
		var wrapped struct {
			Articles *[]rawDraft `json:"articles"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("decode drafts: %w", err)
		}
		if wrapped.Articles == nil {
			return nil, errors.New(`decode drafts: missing "articles"`)
		}
		items = *wrapped.Articles
	}

	drafts := make([]Draft, 0, len(items))
	for i, item := range items {
		d, err := item.validate()
		if err != nil {
			return nil, fmt.Errorf("draft %d: %w", i+1, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (r rawDraft) validate() (Draft, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return Draft{}, errors.New("missing title")
	}
	content := strings.TrimSpace(r.Content)
	if content == "" {
		return Draft{}, errors.New("missing content")
	}
	imagePrompt := strings.TrimSpace(r.ImagePrompt)
	if imagePrompt == "" {
		return Draft{}, errors.New("missing imagePrompt")
	}
	category, err := matchCategory(r.Category)
	if err != nil {
		return Draft{}, err
	}
	html, err := EnsureHTML(content)
	if err != nil {
		return Draft{}, err
	}
	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		summary = Digest(html, digestLimit)
	}
	return Draft{
		Title:       title,
		Content:     html,
		Summary:     summary,
		Category:    category,
		ImagePrompt: imagePrompt,
	}, nil
}

// ParseTopicDraft decodes the editor's {title, content} answer.
func ParseTopicDraft(raw string) (TopicDraft, error) {
	var d TopicDraft
	if err := json.Unmarshal([]byte(stripFence(raw)), &d); err != nil {
		return TopicDraft{}, fmt.Errorf("decode draft: %w", err)
	}
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Content) == "" {
		return TopicDraft{}, errors.New("draft is missing title or content")
	}
	html, err := EnsureHTML(d.Content)
	if err != nil {
		return TopicDraft{}, err
	}
	return TopicDraft{Title: strings.TrimSpace(d.Title), Content: html}, nil
}

func matchCategory(s string) (news.Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range news.Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// EnsureHTML passes HTML through and renders anything else as markdown.
func EnsureHTML(content string) (string, error) {
	content = strings.TrimSpace(stripFence(content))
	if htmlPattern.MatchString(content) {
		return content, nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Digest returns the first limit runes of the text content of html.
func Digest(html string, limit int) string {
	text := strings.Join(strings.Fields(tagPattern.ReplaceAllString(html, " ")), " ")
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit])
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}
