package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"ebook-rag/internal/config"
	"ebook-rag/internal/models"
)

// Generator answers a question strictly from the supplied contexts
type Generator struct {
	llm         llms.Model
	temperature float64
}

func NewGenerator(llm llms.Model, temperature float64) *Generator {
	return &Generator{llm: llm, temperature: temperature}
}

// NewChatModel builds an OpenAI-compatible chat client; Groq by default.
func NewChatModel(cfg *config.LLMConfig) (*openai.LLM, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating chat model")
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return llm, nil
}

// GenerateAnswer returns the fixed not-found answer without calling the
// model when there is no context.
func (g *Generator) GenerateAnswer(ctx context.Context, query string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return models.NotFoundAnswer, nil
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, models.GroundedSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, BuildUserPrompt(query, contexts)),
	}

	log.Debug().Int("contexts", len(contexts)).Msg("Generating answer")
	res, err := g.llm.GenerateContent(ctx, messages, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("generate answer: model returned no choices")
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}

// BuildUserPrompt numbers the contexts from 1 and appends the question
func BuildUserPrompt(query string, contexts []string) string {
	numbered := make([]string, len(contexts))
	for i, c := range contexts {
		numbered[i] = fmt.Sprintf("Context %d:\n%s", i+1, c)
	}
	return fmt.Sprintf(models.GroundedUserPromptTemplate, strings.Join(numbered, models.ParagraphSeparator), query)
}
