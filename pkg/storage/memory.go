package storage

import (
	"sync"
	"time"
)

// MemoryStore implements the Store interface using in-memory storage.
// Suitable for development and single-node deployments; sessions do not
// survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	byIdentity map[string]*PeerSession
	byNonce    map[string]string // session nonce -> peer identity key
	nonces     map[string]time.Time
	nonceTTL   time.Duration
	sessionTTL time.Duration
	done       chan struct{}
}

// NewMemoryStore creates a new in-memory store. Sessions idle longer than
// sessionTTL and nonce bindings older than nonceTTL are cleaned up by a
// background goroutine.
func NewMemoryStore(sessionTTL, nonceTTL time.Duration) *MemoryStore {
	store := &MemoryStore{
		byIdentity: make(map[string]*PeerSession),
		byNonce:    make(map[string]string),
		nonces:     make(map[string]time.Time),
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
		done:       make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

// cleanupLoop runs periodic cleanup of expired sessions and nonces
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpiredSessions(s.sessionTTL)
			s.CleanupExpiredNonces()
		case <-s.done:
			return
		}
	}
}

// AddSession stores a session, replacing any previous session for the same
// peer identity.
func (s *MemoryStore) AddSession(session *PeerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.byIdentity[session.PeerIdentityKey]; exists {
		delete(s.byNonce, old.SessionNonce)
	}

	// Store a copy to avoid race conditions
	sessionCopy := *session
	s.byIdentity[session.PeerIdentityKey] = &sessionCopy
	s.byNonce[session.SessionNonce] = session.PeerIdentityKey

	return nil
}

// GetSessionByIdentity retrieves a session by peer identity key
func (s *MemoryStore) GetSessionByIdentity(identityKey string) (*PeerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.byIdentity[identityKey]
	if !exists {
		return nil, ErrSessionNotFound
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

// GetSessionByNonce retrieves a session by this side's session nonce
func (s *MemoryStore) GetSessionByNonce(sessionNonce string) (*PeerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identityKey, exists := s.byNonce[sessionNonce]
	if !exists {
		return nil, ErrSessionNotFound
	}

	session, exists := s.byIdentity[identityKey]
	if !exists {
		return nil, ErrSessionNotFound
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

// UpdateSession replaces the stored session for the same peer identity
func (s *MemoryStore) UpdateSession(session *PeerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentity[session.PeerIdentityKey]; !exists {
		return ErrSessionNotFound
	}

	sessionCopy := *session
	s.byIdentity[session.PeerIdentityKey] = &sessionCopy
	s.byNonce[session.SessionNonce] = session.PeerIdentityKey

	return nil
}

// DeleteSession removes the session for a peer identity
func (s *MemoryStore) DeleteSession(identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.byIdentity[identityKey]
	if !exists {
		return ErrSessionNotFound
	}

	delete(s.byNonce, session.SessionNonce)
	delete(s.byIdentity, identityKey)

	return nil
}

// CleanupExpiredSessions removes sessions idle longer than maxAge
func (s *MemoryStore) CleanupExpiredSessions(maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	for identityKey, session := range s.byIdentity {
		if session.LastUpdate.Before(cutoff) {
			delete(s.byNonce, session.SessionNonce)
			delete(s.byIdentity, identityKey)
		}
	}

	return nil
}

// BindNonce registers a nonce, failing if it was already seen within the
// replay window.
func (s *MemoryStore) BindNonce(nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nonces[nonce]; exists {
		return ErrNonceAlreadyUsed
	}

	s.nonces[nonce] = time.Now()
	return nil
}

// CleanupExpiredNonces removes nonce bindings older than the store's TTL
func (s *MemoryStore) CleanupExpiredNonces() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.nonceTTL)

	for nonce, seen := range s.nonces {
		if seen.Before(cutoff) {
			delete(s.nonces, nonce)
		}
	}

	return nil
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	close(s.done)
	return nil
}

// Ping checks if the store is healthy (always true for memory store)
func (s *MemoryStore) Ping() error {
	return nil
}

// Stats returns storage statistics for monitoring
func (s *MemoryStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]int{
		"sessions": len(s.byIdentity),
		"nonces":   len(s.nonces),
	}
}
