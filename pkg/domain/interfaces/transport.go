package interfaces

import "context"

// Transport delivers a fully-formed raw message. Implementations succeed or
// fail atomically; no partial delivery and no retry at this layer. The
// active transport is selected once at startup from configuration.
type Transport interface {
	// Send delivers the raw RFC 5322 message from the given address to the
	// given recipient.
	Send(ctx context.Context, raw []byte, from, to string) error

	// Name returns the human-readable name of this transport.
	Name() string
}
