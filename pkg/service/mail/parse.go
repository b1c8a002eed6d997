package mail

import (
	"bytes"
	netmail "net/mail"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// ErrNoSender means the inbound message carries no usable reply address.
var ErrNoSender = goerr.New("sender address is missing")

// defaultFilename stands in for attachments that arrive without a name.
const defaultFilename = "unknown"

// Parse decodes a raw RFC 5322 message into an InboundEmail. The HTML body
// is preferred over the plain-text body when both are present.
func Parse(raw []byte) (*model.InboundEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, goerr.Wrap(err, "malformed email message")
	}

	fromHeader := env.GetHeader("From")
	if fromHeader == "" {
		return nil, goerr.Wrap(ErrNoSender, "no From header")
	}
	fromAddr, err := netmail.ParseAddress(fromHeader)
	if err != nil {
		return nil, goerr.Wrap(ErrNoSender, "unparsable From header", goerr.V("from", fromHeader))
	}

	email := &model.InboundEmail{
		From:       types.EmailAddress(fromAddr.Address).Normalize(),
		FromName:   fromAddr.Name,
		To:         env.GetHeader("To"),
		Subject:    env.GetHeader("Subject"),
		MessageID:  env.GetHeader("Message-Id"),
		References: env.GetHeader("References"),
		Date:       parseDate(env.GetHeader("Date")),
		Body:       env.Text,
	}
	if env.HTML != "" {
		email.Body = env.HTML
		email.HTMLBody = true
	}

	for _, part := range append(env.Attachments, env.Inlines...) {
		if len(part.Content) == 0 {
			continue
		}
		filename := part.FileName
		if filename == "" {
			filename = defaultFilename
		}
		email.Attachments = append(email.Attachments, model.Attachment{
			Filename:    filename,
			ContentType: part.ContentType,
			Description: part.Header.Get("Content-Description"),
			Content:     part.Content,
		})
	}

	return email, nil
}

func parseDate(header string) time.Time {
	if header != "" {
		if ts, err := netmail.ParseDate(header); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}
