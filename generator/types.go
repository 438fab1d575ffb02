package generator

import "pamong_newsroom/news"

// Draft is one unpersisted article proposal produced by the model.
type Draft struct {
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Summary     string        `json:"summary"`
	Category    news.Category `json:"category"`
	ImagePrompt string        `json:"imagePrompt"`
}

// TopicDraft is the editor's "draft from topic" result.
type TopicDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
