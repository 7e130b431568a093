package storage

import (
	"fmt"
	"time"
)

// PeerSession is the state one party keeps about an authenticated (or
// pending) peer. SessionNonce is always the nonce this side minted;
// PeerNonce is the nonce the other side contributed.
type PeerSession struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	SessionNonce    string    `json:"sessionNonce"`
	PeerNonce       string    `json:"peerNonce"`
	PeerIdentityKey string    `json:"peerIdentityKey"`
	LastUpdate      time.Time `json:"lastUpdate"`
}

// SessionStore defines the interface for peer session storage
type SessionStore interface {
	// AddSession stores a session, replacing any previous session for the
	// same peer identity.
	AddSession(session *PeerSession) error

	// GetSessionByIdentity retrieves a session by peer identity key.
	GetSessionByIdentity(identityKey string) (*PeerSession, error)

	// GetSessionByNonce retrieves a session by this side's session nonce.
	GetSessionByNonce(sessionNonce string) (*PeerSession, error)

	// UpdateSession replaces the stored session for the same peer identity.
	UpdateSession(session *PeerSession) error

	// DeleteSession removes the session for a peer identity.
	DeleteSession(identityKey string) error

	// CleanupExpiredSessions removes sessions idle longer than maxAge.
	CleanupExpiredSessions(maxAge time.Duration) error
}

// NonceStore defines the interface for replay prevention: every
// general-message nonce is bound exactly once within its TTL window.
type NonceStore interface {
	// BindNonce registers a nonce, failing if it was already seen.
	BindNonce(nonce string) error

	// CleanupExpiredNonces removes bindings older than the store's TTL.
	CleanupExpiredNonces() error
}

// Store combines all storage interfaces
type Store interface {
	SessionStore
	NonceStore

	// Close closes the storage connection
	Close() error

	// Ping checks if the storage is healthy
	Ping() error
}

var (
	// ErrSessionNotFound indicates a session was not found
	ErrSessionNotFound = fmt.Errorf("session not found")

	// ErrNonceAlreadyUsed indicates a replayed nonce
	ErrNonceAlreadyUsed = fmt.Errorf("nonce already used")
)
