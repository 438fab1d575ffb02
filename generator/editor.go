package generator

import (
	"context"
	"errors"
	"strings"
)

// EditorialLead writes a short lead paragraph for an article.
func (a *Agent) EditorialLead(ctx context.Context, title, content string) (string, error) {
	return a.complete(ctx, BuildLeadPrompt(title, content, a.systemInstruction(ctx)))
}

// Continue extends an article with one or two HTML paragraphs.
func (a *Agent) Continue(ctx context.Context, content string) (string, error) {
	out, err := a.complete(ctx, BuildContinuePrompt(content, a.systemInstruction(ctx)))
	if err != nil {
		return "", err
	}
	return EnsureHTML(out)
}

// Improve rewrites an article in a more professional register.
func (a *Agent) Improve(ctx context.Context, content string) (string, error) {
	out, err := a.complete(ctx, BuildImprovePrompt(content, a.systemInstruction(ctx)))
	if err != nil {
		return "", err
	}
	return EnsureHTML(out)
}

// Ask answers a reader question using the article as context.
func (a *Agent) Ask(ctx context.Context, question, articleContext string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is empty")
	}
	return a.complete(ctx, BuildAskPrompt(question, articleContext, a.systemInstruction(ctx)))
}

// DraftFromTopic writes a full draft about topic.
func (a *Agent) DraftFromTopic(ctx context.Context, topic string) (TopicDraft, error) {
	if strings.TrimSpace(topic) == "" {
		return TopicDraft{}, errors.New("topic is empty")
	}
	raw, err := a.llm.Complete(ctx, BuildTopicPrompt(topic, a.systemInstruction(ctx)))
	if err != nil {
		return TopicDraft{}, err
	}
	return ParseTopicDraft(raw)
}

func (a *Agent) complete(ctx context.Context, p Prompt) (string, error) {
	out, err := a.llm.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("model returned empty answer")
	}
	return out, nil
}
