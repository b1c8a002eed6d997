package core

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/askemail/pkg/agent/tool"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// noMatchMessage is the structured failure the agent receives when nothing
// qualifies; it must be a result the model can react to, not an error.
const noMatchMessage = "No matching memories found for the text received, you may try again with different text."

// saveMemoryTool persists a new memory record for the sender and indexes
// its embedding. The two phases are deliberately separate: a record whose
// embedding upsert fails stays persisted but unsearchable, and the failure
// is reported to the agent for that tool call only.
type saveMemoryTool struct {
	repo        interfaces.Repository
	llmClient   gollem.LLMClient
	sender      types.EmailAddress
	requestText string
}

func (t *saveMemoryTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "save_in_memory",
		Description: "Call this function when the user asks you to remember something. This saves the user message and a text of your choice that represents what the user asked you to remember.",
		Parameters: map[string]*gollem.Parameter{
			"text": {
				Type:        gollem.TypeString,
				Description: "The content to remember for this user",
				Required:    true,
			},
		},
	}
}

func (t *saveMemoryTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	text, err := requireText(args)
	if err != nil {
		return nil, err
	}

	tool.Update(ctx, fmt.Sprintf("Saving memory for %s", t.sender))

	created, err := t.repo.Memory().Create(ctx, t.sender, &model.Memory{
		Request: t.requestText,
		Content: text,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist memory", goerr.V("sender", t.sender))
	}

	embedding, err := generateEmbedding(ctx, t.llmClient,
		fmt.Sprintf("User Request: %s \nLLM text saved: %s", t.requestText, text))
	if err != nil {
		// The record is already persisted; only the index entry is missing.
		return nil, goerr.Wrap(err, "memory stored but not indexed",
			goerr.V("memoryID", created.ID),
		)
	}

	if err := t.repo.Memory().SetEmbedding(ctx, t.sender, created.ID, embedding); err != nil {
		return nil, goerr.Wrap(err, "memory stored but not indexed",
			goerr.V("memoryID", created.ID),
		)
	}

	return map[string]any{
		"success":   true,
		"memory_id": string(created.ID),
	}, nil
}

// getMemoryTool retrieves memories similar to the given text within the
// sender's namespace.
type getMemoryTool struct {
	repo      interfaces.Repository
	llmClient gollem.LLMClient
	sender    types.EmailAddress
}

func (t *getMemoryTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "get_from_memory",
		Description: "Call this function when the user asks you directly or indirectly about something from the past. In the text property you should send what you are trying to remember; up to three related memories are returned.",
		Parameters: map[string]*gollem.Parameter{
			"text": {
				Type:        gollem.TypeString,
				Description: "What you are trying to remember",
				Required:    true,
			},
		},
	}
}

func (t *getMemoryTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	text, err := requireText(args)
	if err != nil {
		return nil, err
	}

	tool.Update(ctx, fmt.Sprintf("Searching memories for %s", t.sender))

	embedding, err := generateEmbedding(ctx, t.llmClient, text)
	if err != nil {
		return nil, err
	}

	matches, err := t.repo.Memory().FindByEmbedding(ctx, t.sender, embedding, memoryTopK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories", goerr.V("sender", t.sender))
	}

	// Keep neighbor order; no re-ranking after the threshold cut.
	var ids []model.MemoryID
	for _, match := range matches {
		if match.Score > ScoreThreshold {
			ids = append(ids, match.Memory.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]any{
			"success": false,
			"error":   noMatchMessage,
		}, nil
	}

	memories, err := t.repo.Memory().GetByIDs(ctx, t.sender, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hydrate memories", goerr.V("sender", t.sender))
	}
	if len(memories) == 0 {
		return map[string]any{
			"success": false,
			"error":   noMatchMessage,
		}, nil
	}

	items := make([]map[string]any, len(memories))
	for i, m := range memories {
		items[i] = map[string]any{
			"memorySavedAt":         m.CreatedAt.Format(time.RFC3339),
			"userRequestAtTheTime":  m.Request,
			"contextSavedAtTheTime": m.Content,
		}
	}

	return map[string]any{
		"success":  true,
		"memories": items,
	}, nil
}
