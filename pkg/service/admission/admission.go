package admission

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/model/config"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// emptyManifest is what the agent sees when the email carried no files.
const emptyManifest = "No attachments received in this email"

// Controller applies the accept/reject policy to inbound attachments before
// they reach the agent.
type Controller struct {
	cfg *config.Pipeline
}

func New(cfg *config.Pipeline) *Controller {
	return &Controller{cfg: cfg}
}

// Admit walks the attachments in their original order and decides each one:
// declared MIME type first, then the remaining size budget. A rejected
// attachment never consumes budget, so a later smaller attachment can still
// be admitted. The running budget is irrevocable, which makes acceptance
// order-sensitive and deterministic.
func (x *Controller) Admit(attachments []model.Attachment) *model.AdmissionResult {
	result := &model.AdmissionResult{}

	if len(attachments) == 0 {
		result.Manifest = emptyManifest
		return result
	}

	lines := []string{"Attachments/Files received with this email:"}
	var used int

	for i := range attachments {
		att := &attachments[i]
		decision := model.AttachmentDecision{
			Filename: att.Filename,
			MIMEType: normalizeMIMEType(att.ContentType),
			Size:     att.Size(),
		}

		switch {
		case !x.cfg.Supports(decision.MIMEType):
			decision.Reason = types.RejectUnsupportedType
			lines = append(lines, fmt.Sprintf(
				"- File %q was not admitted: the mimetype %s is not supported",
				att.Filename, decision.MIMEType))

		case used+decision.Size > x.cfg.MaxAttachmentBytes:
			decision.Reason = types.RejectTooLarge
			lines = append(lines, fmt.Sprintf(
				"- File %q (%s, %d bytes) was not admitted: it exceeds the remaining attachment size budget",
				att.Filename, decision.MIMEType, decision.Size))

		default:
			decision.Accepted = true
			used += decision.Size
			line := fmt.Sprintf("- File %q of type %s", att.Filename, decision.MIMEType)
			if att.Description != "" {
				line += fmt.Sprintf(": %s", att.Description)
			}
			lines = append(lines, line)
			result.Parts = append(result.Parts, model.FilePart{
				Name:        att.Filename,
				ContentType: decision.MIMEType,
				Data:        encodeContent(att),
			})
		}

		result.Decisions = append(result.Decisions, decision)
	}

	result.Manifest = strings.Join(lines, "\n")
	return result
}

// FormatParts renders the accepted attachments as inline model-consumable
// file parts, in admission order.
func FormatParts(parts []model.FilePart) string {
	var sb strings.Builder
	for _, part := range parts {
		fmt.Fprintf(&sb, "<attachment name=%q type=%q>%s</attachment>\n",
			part.Name, part.ContentType, part.Data)
	}
	return sb.String()
}

// normalizeMIMEType strips parameters and lowercases the declared type, so
// "Text/Plain; charset=utf-8" matches the supported set as "text/plain".
func normalizeMIMEType(contentType string) string {
	mimeType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func encodeContent(att *model.Attachment) string {
	if att.IsText() {
		return att.TextContent
	}
	return base64.StdEncoding.EncodeToString(att.Content)
}
