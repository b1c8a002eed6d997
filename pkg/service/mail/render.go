package mail

import (
	"bytes"

	"github.com/m-mizutani/goerr/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderMarkdown converts the agent's markdown answer into the HTML body of
// the outgoing reply.
func RenderMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", goerr.Wrap(err, "failed to render markdown")
	}
	return buf.String(), nil
}
