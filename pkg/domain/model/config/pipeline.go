package config

// DefaultMaxAttachmentBytes is the per-email attachment size budget.
const DefaultMaxAttachmentBytes = 524288 // 0.5MB

// DefaultMaxRepliesPerDay is the soft ceiling of replies per sender per UTC day.
const DefaultMaxRepliesPerDay = 10

// DefaultSupportedMIMETypes lists the attachment types forwarded to the model.
var DefaultSupportedMIMETypes = []string{
	"application/pdf",
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
	"image/png",
	"image/jpeg",
	"image/webp",
	"text/plain",
	"video/mov",
	"video/mpeg",
	"video/mp4",
	"video/mpg",
	"video/avi",
	"video/wmv",
	"video/mpegps",
	"video/flv",
}

// Pipeline carries the immutable configuration threaded through one pipeline
// invocation: budgets, limits, the reply-from address, and the supported
// attachment type set. Build it once at startup and never mutate it.
type Pipeline struct {
	MaxAttachmentBytes int
	MaxRepliesPerDay   int64
	FromAddress        string
	FromName           string
	SupportedMIMETypes map[string]bool
}

// NewPipeline returns a Pipeline populated with the default budgets and the
// default supported MIME type set.
func NewPipeline() *Pipeline {
	supported := make(map[string]bool, len(DefaultSupportedMIMETypes))
	for _, t := range DefaultSupportedMIMETypes {
		supported[t] = true
	}
	return &Pipeline{
		MaxAttachmentBytes: DefaultMaxAttachmentBytes,
		MaxRepliesPerDay:   DefaultMaxRepliesPerDay,
		FromName:           "AskEmail",
		SupportedMIMETypes: supported,
	}
}

// Supports reports whether the given normalized MIME type is admitted.
func (x *Pipeline) Supports(mimeType string) bool {
	return x.SupportedMIMETypes[mimeType]
}
