// Package sign issues and verifies the short-lived tokens that authorize
// downloads of locally stored files.
package sign

import (
	"errors"
	"time"
)

var (
	ErrSignExpired = errors.New("sign expired")
	ErrSignInvalid = errors.New("sign invalid")
)

// DefaultExpiry is used when the caller does not specify a token lifetime.
const DefaultExpiry = 3 * time.Hour

// Signer issues tokens embedding a file id and verifies them back.
type Signer interface {
	// Sign returns a token for the file id, expiring at the given unix
	// second. Zero means no expiry.
	Sign(fileID string, expire int64) string

	// Verify checks the token and returns the embedded file id.
	Verify(token string) (string, error)
}

// WithDuration signs a file id with a relative lifetime.
func WithDuration(s Signer, fileID string, d time.Duration) string {
	return s.Sign(fileID, time.Now().Add(d).Unix())
}
