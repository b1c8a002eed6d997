package model

import (
	"time"

	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// Attachment is one file carried by an inbound email. Content holds raw
// bytes for binary parts; TextContent holds the body of textual parts that
// arrive without a materialized buffer. Exactly one of the two is set.
type Attachment struct {
	Filename    string
	ContentType string
	Description string
	Content     []byte
	TextContent string
}

// Size returns the byte length counted against the admission budget.
func (x *Attachment) Size() int {
	if x.Content != nil {
		return len(x.Content)
	}
	return len(x.TextContent)
}

// Data returns the attachment content as raw bytes.
func (x *Attachment) Data() []byte {
	if x.Content != nil {
		return x.Content
	}
	return []byte(x.TextContent)
}

// IsText reports whether the attachment carries textual content.
func (x *Attachment) IsText() bool {
	return x.Content == nil
}

// InboundEmail is one parsed inbound message. It is immutable once parsed
// and owned by the pipeline invocation that produced it.
type InboundEmail struct {
	From        types.EmailAddress
	FromName    string
	To          string
	Subject     string
	Body        string
	HTMLBody    bool
	MessageID   string
	References  string
	Date        time.Time
	Attachments []Attachment
}

// ModelResponse is the agent's answer to one inbound email: the raw text,
// the reply subject, and the HTML rendering of the text.
type ModelResponse struct {
	Response string
	Subject  string
	HTML     string
}
