package mail

import (
	"bytes"
	"fmt"
	"html"
	"time"

	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/model/config"
)

// ComposeReply builds the raw outgoing reply to the given inbound email.
// The reply threads to the original via In-Reply-To and References, and the
// HTML body is the rendered answer followed by a separator and the quoted
// original body.
func ComposeReply(email *model.InboundEmail, resp *model.ModelResponse, cfg *config.Pipeline) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", cfg.FromName, cfg.FromAddress)
	fmt.Fprintf(&buf, "To: %s\r\n", email.From)
	fmt.Fprintf(&buf, "Subject: %s\r\n", resp.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	if email.MessageID != "" {
		fmt.Fprintf(&buf, "In-Reply-To: %s\r\n", email.MessageID)
		fmt.Fprintf(&buf, "References: %s\r\n", appendReference(email.References, email.MessageID))
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")

	buf.WriteString(resp.HTML)
	buf.WriteString("\r\n<hr>\r\n")
	buf.WriteString(quoteOriginal(email))

	return buf.Bytes()
}

// ReplySubject derives the subject of the reply from the original subject.
func ReplySubject(subject string) string {
	return "RE: " + subject
}

func appendReference(references, messageID string) string {
	if references == "" {
		return messageID
	}
	return references + " " + messageID
}

// quoteOriginal renders the original body as a quoted block. A plain-text
// original is escaped first so it survives inside the HTML reply.
func quoteOriginal(email *model.InboundEmail) string {
	body := email.Body
	if !email.HTMLBody {
		body = html.EscapeString(body)
	}
	return fmt.Sprintf("<blockquote>%s</blockquote>\r\n", body)
}
