// Package signature computes and checks MCP webhook signatures.
//
// A signature is the lowercase hex HMAC-SHA256 of the raw request body keyed by
// the shared signing secret, prefixed with "sha256=".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// Header carries the signature on inbound MCP requests.
const Header = "MCP-Signature"

// Prefix tags the digest algorithm.
const Prefix = "sha256="

var ErrInvalidInput = errors.New("signature: body must be non-nil and secret non-empty")

// Compute returns the tagged signature of rawBody under secret.
func Compute(rawBody []byte, secret string) (string, error) {
	if rawBody == nil || secret == "" {
		return "", ErrInvalidInput
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return Prefix + hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether received is a valid signature of rawBody under secret.
// It never returns an error; any missing or malformed input yields false.
func Verify(rawBody []byte, received, secret string) bool {
	if len(rawBody) == 0 || received == "" || secret == "" {
		return false
	}
	expected, err := Compute(rawBody, secret)
	if err != nil {
		return false
	}

	want, err := hex.DecodeString(strings.TrimPrefix(expected, Prefix))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(received, Prefix))
	if err != nil {
		return false
	}

	// Length is not secret; only the content comparison must be constant time.
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
