// Package auth implements the nonce-based mutual-authentication handshake
// that consumes the wallet package's key derivation, plus its HTTP message
// framing.
//
// Each party contributes a 32-byte random nonce, base64-encoded on the
// wire. The pair of nonces binds a session: it forms the key identifier for
// every derivation in that session and the exact byte payloads that are
// signed and verified. The byte-level assembly rules here are normative;
// any deviation produces signatures no conforming peer can verify.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NonceLength is the raw length of every handshake nonce in bytes.
const NonceLength = 32

var (
	// ErrInvalidNonceLength indicates a decoded nonce is not exactly
	// NonceLength bytes.
	ErrInvalidNonceLength = fmt.Errorf("invalid nonce length")

	// ErrInvalidEncoding indicates a nonce string that is not valid base64.
	ErrInvalidEncoding = fmt.Errorf("invalid nonce encoding")
)

// NewNonce generates a fresh random nonce, base64-encoded for transport.
func NewNonce() (string, error) {
	raw := make([]byte, NonceLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeNonce decodes a transport-encoded nonce and checks its raw length.
func DecodeNonce(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(raw) != NonceLength {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonceLength, len(raw), NonceLength)
	}
	return raw, nil
}

// SigningData assembles the byte payload covered by the responder's
// handshake signature: the raw initial nonce followed by the raw session
// nonce, 64 bytes.
//
// Each nonce is decoded individually and the raw byte slices concatenated.
// Concatenating the base64 strings and decoding once is a different
// operation with different output (base64 is not concatenation-
// homomorphic) and must never be used.
func SigningData(initialNonce, sessionNonce string) ([]byte, error) {
	initial, err := DecodeNonce(initialNonce)
	if err != nil {
		return nil, fmt.Errorf("initial nonce: %w", err)
	}
	session, err := DecodeNonce(sessionNonce)
	if err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}
	return append(initial, session...), nil
}

// VerificationData assembles the byte payload for the verification
// direction: the raw session nonce followed by the raw initial nonce, the
// reverse pairing of SigningData. The same decode-then-concatenate rule
// applies.
func VerificationData(initialNonce, sessionNonce string) ([]byte, error) {
	session, err := DecodeNonce(sessionNonce)
	if err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}
	initial, err := DecodeNonce(initialNonce)
	if err != nil {
		return nil, fmt.Errorf("initial nonce: %w", err)
	}
	return append(session, initial...), nil
}

// SessionKeyID builds the key identifier for a session's derivations: the
// two transport-encoded nonces joined by a single space, initial nonce
// first. This textual order never changes with direction; the key id is a
// separate artifact from the signed byte payloads and must not be confused
// with them.
func SessionKeyID(initialNonce, sessionNonce string) string {
	return initialNonce + " " + sessionNonce
}
