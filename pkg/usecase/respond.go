package usecase

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/askemail/pkg/agent/tool"
	"github.com/secmon-lab/askemail/pkg/agent/tool/core"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/service/admission"
	"github.com/secmon-lab/askemail/pkg/service/mail"
	"github.com/secmon-lab/askemail/pkg/utils/logging"
)

//go:embed prompt/respond_system.md
var respondSystemPrompt string

// maxAgentSteps bounds the agent conversation. Reaching the ceiling makes
// the inference call fail explicitly instead of silently truncating.
const maxAgentSteps = 5

// generateResponse runs the bounded agent conversation for one email and
// returns the final answer with its derived subject and HTML rendering.
func (uc *UseCases) generateResponse(ctx context.Context, email *model.InboundEmail, adm *model.AdmissionResult) (*model.ModelResponse, error) {
	logger := logging.From(ctx)

	userRequest := fmt.Sprintf(
		"Received new email from user %s <%s>, on date %s.\nEmail Subject: %s\nEmail Body: %s",
		email.FromName, email.From, email.Date.Format(time.RFC1123Z), email.Subject, email.Body)

	attachmentText := adm.Manifest
	if len(adm.Parts) > 0 {
		attachmentText += "\n\n" + admission.FormatParts(adm.Parts)
	}

	coreTools := core.New(uc.repo, uc.llmClient, email.From, userRequest)

	agent := gollem.New(uc.llmClient,
		gollem.WithSystemPrompt(respondSystemPrompt),
		gollem.WithTools(coreTools...),
		gollem.WithLoopLimit(maxAgentSteps),
		gollem.WithToolMiddleware(
			func(next gollem.ToolHandler) gollem.ToolHandler {
				return func(ctx context.Context, req *gollem.ToolExecRequest) (*gollem.ToolExecResponse, error) {
					tool.Update(ctx, fmt.Sprintf("running %s", req.Tool.Name))
					resp, err := next(ctx, req)
					if resp != nil && resp.Error != nil {
						logger.Warn("tool execution failed",
							"tool", req.Tool.Name,
							"error", resp.Error.Error(),
						)
					}
					return resp, err
				}
			},
		),
	)

	resp, err := agent.Execute(ctx,
		gollem.Text(attachmentText),
		gollem.Text(userRequest),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to execute agent", goerr.V("sender", email.From))
	}

	text := strings.Join(resp.Texts, "\n")
	html, err := mail.RenderMarkdown(text)
	if err != nil {
		return nil, err
	}

	return &model.ModelResponse{
		Response: text,
		Subject:  mail.ReplySubject(email.Subject),
		HTML:     html,
	}, nil
}
