package llmservice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"ebook-rag/internal/config"
)

// ListModels returns the model ids served by the chat endpoint, sorted
func ListModels(ctx context.Context, cfg *config.LLMConfig) ([]string, error) {
	clientCfg := goopenai.DefaultConfig(strings.TrimPrefix(cfg.Key, "Bearer "))
	clientCfg.BaseURL = cfg.BaseURL
	client := goopenai.NewClientWithConfig(clientCfg)

	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
