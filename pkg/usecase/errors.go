package usecase

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrDeliveryFailed means the outbound transport could not deliver the
	// reply. Fatal for the current invocation; no retry.
	ErrDeliveryFailed = goerr.New("failed to deliver reply")
)
