// Package token inspects access credentials without verifying them.
//
// Signature verification is the server's job; the client only needs the
// expiry claim to schedule renewal. Anything malformed is reported as
// "expiry unknown", never as an error.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeExpiry extracts the exp claim (seconds since epoch) from a credential
// string. It returns false for any malformed input: empty string, wrong
// segment count, invalid base64 in the claims segment, invalid JSON, or a
// missing or non-numeric exp.
func DecodeExpiry(credential string) (int64, bool) {
	if credential == "" {
		return 0, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return 0, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}

	return exp.Unix(), true
}

// UntilExpiry returns how long the credential remains valid as of now. An
// already-expired credential yields zero, never a negative duration. The
// second return is false when the expiry cannot be decoded.
func UntilExpiry(credential string, now time.Time) (time.Duration, bool) {
	exp, ok := DecodeExpiry(credential)
	if !ok {
		return 0, false
	}

	remaining := time.Unix(exp, 0).Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true
}
