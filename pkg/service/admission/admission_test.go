package admission_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/model/config"
	"github.com/secmon-lab/askemail/pkg/domain/types"
	"github.com/secmon-lab/askemail/pkg/service/admission"
)

func newController(budget int) *admission.Controller {
	cfg := config.NewPipeline()
	cfg.MaxAttachmentBytes = budget
	return admission.New(cfg)
}

func TestAdmit(t *testing.T) {
	t.Run("no attachments yields the fixed manifest", func(t *testing.T) {
		result := newController(100).Admit(nil)
		gt.Value(t, result.Manifest).Equal("No attachments received in this email")
		gt.Array(t, result.Decisions).Length(0)
		gt.Array(t, result.Parts).Length(0)
	})

	t.Run("unsupported type is rejected regardless of size", func(t *testing.T) {
		result := newController(1 << 20).Admit([]model.Attachment{
			{Filename: "tiny.exe", ContentType: "application/x-msdownload", Content: []byte{0x4d}},
		})

		gt.Array(t, result.Decisions).Length(1)
		gt.Bool(t, result.Decisions[0].Accepted).False()
		gt.Value(t, result.Decisions[0].Reason).Equal(types.RejectUnsupportedType)
		gt.Array(t, result.Parts).Length(0)
		gt.Value(t, strings.Contains(result.Manifest, "application/x-msdownload")).Equal(true)
	})

	t.Run("MIME type parameters and case are ignored", func(t *testing.T) {
		result := newController(1 << 20).Admit([]model.Attachment{
			{Filename: "notes.txt", ContentType: "Text/Plain; charset=utf-8", TextContent: "hello"},
		})

		gt.Array(t, result.Decisions).Length(1)
		gt.Bool(t, result.Decisions[0].Accepted).True()
		gt.Value(t, result.Decisions[0].MIMEType).Equal("text/plain")
	})

	t.Run("acceptance is order-dependent against the budget", func(t *testing.T) {
		budget := 10
		result := newController(budget).Admit([]model.Attachment{
			{Filename: "big.txt", ContentType: "text/plain", TextContent: strings.Repeat("a", budget-1)},
			{Filename: "small.txt", ContentType: "text/plain", TextContent: "bb"},
		})

		gt.Array(t, result.Decisions).Length(2)
		gt.Bool(t, result.Decisions[0].Accepted).True()
		gt.Bool(t, result.Decisions[1].Accepted).False()
		gt.Value(t, result.Decisions[1].Reason).Equal(types.RejectTooLarge)
		gt.Value(t, result.AcceptedBytes() <= budget).Equal(true)
	})

	t.Run("rejected attachment does not consume budget", func(t *testing.T) {
		budget := 10
		result := newController(budget).Admit([]model.Attachment{
			{Filename: "a.txt", ContentType: "text/plain", TextContent: strings.Repeat("a", 6)},
			{Filename: "huge.txt", ContentType: "text/plain", TextContent: strings.Repeat("b", 20)},
			{Filename: "c.txt", ContentType: "text/plain", TextContent: strings.Repeat("c", 4)},
		})

		gt.Array(t, result.Decisions).Length(3)
		gt.Bool(t, result.Decisions[0].Accepted).True()
		gt.Bool(t, result.Decisions[1].Accepted).False()
		gt.Bool(t, result.Decisions[2].Accepted).True()
		gt.Value(t, result.AcceptedBytes()).Equal(10)
	})

	t.Run("accepted text content is inlined and binary is base64", func(t *testing.T) {
		result := newController(1 << 20).Admit([]model.Attachment{
			{Filename: "notes.txt", ContentType: "text/plain", TextContent: "plain words"},
			{Filename: "pic.png", ContentType: "image/png", Content: []byte{0x89, 0x50, 0x4e, 0x47}},
		})

		gt.Array(t, result.Parts).Length(2)
		gt.Value(t, result.Parts[0].Data).Equal("plain words")
		gt.Value(t, result.Parts[1].Data).Equal("iVBORw==")

		formatted := admission.FormatParts(result.Parts)
		gt.Value(t, strings.Contains(formatted, `<attachment name="notes.txt" type="text/plain">plain words</attachment>`)).Equal(true)
		gt.Value(t, strings.Contains(formatted, `name="pic.png"`)).Equal(true)
	})

	t.Run("manifest includes description of accepted file", func(t *testing.T) {
		result := newController(1 << 20).Admit([]model.Attachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Description: "quarterly report", Content: []byte("pdfdata")},
		})

		gt.Value(t, strings.Contains(result.Manifest, "quarterly report")).Equal(true)
		gt.Value(t, strings.Contains(result.Manifest, "report.pdf")).Equal(true)
	})
}
