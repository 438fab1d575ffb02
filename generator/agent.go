package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultBatchSize is the number of trending drafts requested per research call.
const DefaultBatchSize = 5

// InstructionFunc resolves the editorial system instruction at call time so
// settings edits apply without a restart.
type InstructionFunc func(ctx context.Context) string

// Agent researches trending topics and writes drafts with the LLM.
type Agent struct {
	llm         LLMClient
	instruction InstructionFunc
	batchSize   int
}

// NewAgent builds an Agent. A nil instruction uses DefaultSystemInstruction.
func NewAgent(llm LLMClient, instruction InstructionFunc) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if instruction == nil {
		instruction = func(context.Context) string { return DefaultSystemInstruction }
	}
	return &Agent{llm: llm, instruction: instruction, batchSize: DefaultBatchSize}, nil
}

// WithBatchSize overrides how many drafts a research call asks for.
func (a *Agent) WithBatchSize(n int) *Agent {
	if n > 0 {
		a.batchSize = n
	}
	return a
}

func (a *Agent) systemInstruction(ctx context.Context) string {
	if s := strings.TrimSpace(a.instruction(ctx)); s != "" {
		return s
	}
	return DefaultSystemInstruction
}

// GenerateTrendingDrafts researches today's viral topics, then asks for a
// batch of structured drafts about them. Any malformed answer is an error.
func (a *Agent) GenerateTrendingDrafts(ctx context.Context) ([]Draft, error) {
	trends, err := a.llm.Complete(ctx, BuildResearchPrompt(a.batchSize))
	if err != nil {
		return nil, fmt.Errorf("research trends: %w", err)
	}
	if strings.TrimSpace(trends) == "" {
		return nil, errors.New("research trends: empty answer")
	}

	raw, err := a.llm.Complete(ctx, BuildArticlesPrompt(trends, a.batchSize, a.systemInstruction(ctx)))
	if err != nil {
		return nil, fmt.Errorf("generate articles: %w", err)
	}
	drafts, err := ParseDrafts(raw)
	if err != nil {
		return nil, fmt.Errorf("generate articles: %w", err)
	}
	return drafts, nil
}
