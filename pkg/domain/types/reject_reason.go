package types

// RejectReason explains why an attachment was not admitted to the agent.
type RejectReason string

const (
	// RejectUnsupportedType means the declared MIME type is not in the
	// supported set.
	RejectUnsupportedType RejectReason = "unsupported-type"

	// RejectTooLarge means admitting the attachment would exceed the
	// per-email size budget.
	RejectTooLarge RejectReason = "too-large"
)

func (x RejectReason) String() string {
	return string(x)
}
