package types

import (
	"net/mail"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// EmailAddress is the address of a mail sender or recipient. It doubles as
// the namespace key for memory isolation: all memory records and usage
// counters are partitioned by this value.
type EmailAddress string

// Validate checks that the address is a parsable RFC 5322 address.
func (x EmailAddress) Validate() error {
	if x == "" {
		return goerr.New("email address is empty")
	}
	if _, err := mail.ParseAddress(string(x)); err != nil {
		return goerr.Wrap(err, "invalid email address", goerr.V("address", string(x)))
	}
	return nil
}

func (x EmailAddress) String() string {
	return string(x)
}

// Normalize lowercases the address so that lookups are case-insensitive.
func (x EmailAddress) Normalize() EmailAddress {
	return EmailAddress(strings.ToLower(strings.TrimSpace(string(x))))
}
