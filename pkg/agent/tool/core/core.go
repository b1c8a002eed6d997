package core

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// memoryTopK is the number of nearest neighbors requested per retrieval.
const memoryTopK = 3

// ScoreThreshold is the minimum similarity score a retrieved neighbor must
// exceed to count as a true memory hit.
const ScoreThreshold = 0.65

// ErrEmptyEmbedding is returned when the embedding service yields no vector.
var ErrEmptyEmbedding = goerr.New("embedding service returned no vector")

// New builds the memory tools for one pipeline invocation. Both tools are
// bound to the sender address as their isolation namespace and to the
// composed request text of the email being answered.
func New(repo interfaces.Repository, llmClient gollem.LLMClient, sender types.EmailAddress, requestText string) []gollem.Tool {
	return []gollem.Tool{
		&saveMemoryTool{repo: repo, llmClient: llmClient, sender: sender, requestText: requestText},
		&getMemoryTool{repo: repo, llmClient: llmClient, sender: sender},
	}
}

// generateEmbedding generates a float32 embedding for the given text.
func generateEmbedding(ctx context.Context, llmClient gollem.LLMClient, text string) ([]float32, error) {
	embeddings, err := llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.Wrap(ErrEmptyEmbedding, "failed to generate embedding")
	}

	embedding64 := embeddings[0]
	embedding32 := make([]float32, len(embedding64))
	for i, v := range embedding64 {
		embedding32[i] = float32(v)
	}
	return embedding32, nil
}

func requireText(args map[string]any) (string, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return "", fmt.Errorf("text is required")
	}
	return text, nil
}
