package model

import "github.com/secmon-lab/askemail/pkg/domain/types"

// AttachmentDecision records the outcome of admission control for one
// attachment, in the order the attachment arrived.
type AttachmentDecision struct {
	Filename string
	MIMEType string
	Accepted bool
	Reason   types.RejectReason
	Size     int
}

// FilePart is an accepted attachment formatted for model consumption.
type FilePart struct {
	Name        string
	ContentType string
	Data        string
}

// AdmissionResult is the full output of admission control: per-attachment
// decisions, the human-readable manifest, and the accepted file parts.
type AdmissionResult struct {
	Decisions []AttachmentDecision
	Manifest  string
	Parts     []FilePart
}

// AcceptedBytes returns the total byte size of accepted attachments.
func (x *AdmissionResult) AcceptedBytes() int {
	var total int
	for _, d := range x.Decisions {
		if d.Accepted {
			total += d.Size
		}
	}
	return total
}
