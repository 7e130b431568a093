package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/auth"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/storage"
)

// ContextKey is used for storing values in context
type ContextKey string

const (
	// PeerIdentityKey is the context key for the authenticated peer's
	// identity key (compressed hex).
	PeerIdentityKey ContextKey = "peer_identity"
)

// maxBodyBytes bounds the request body buffered for signature verification.
const maxBodyBytes = 1 << 20

// Auth creates middleware that verifies general-message auth headers on
// every request: the sender must hold a session from a completed handshake,
// the fresh nonce must not replay, and the signature must verify under the
// mirror key for the message's nonce pair. The body is buffered so the
// digest covers exactly what the handler will read.
func Auth(peer *auth.Peer, store storage.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			msg, err := auth.MessageFromHeaders(r.Header)
			if err != nil {
				http.Error(w, fmt.Sprintf("missing authentication: %v", err), http.StatusUnauthorized)
				return
			}

			session, err := store.GetSessionByIdentity(msg.IdentityKey)
			if err != nil {
				http.Error(w, "no session for peer, handshake required", http.StatusUnauthorized)
				return
			}

			// The echoed nonce must be the one we minted for this peer.
			if msg.YourNonce != session.SessionNonce {
				http.Error(w, "session nonce mismatch", http.StatusUnauthorized)
				return
			}

			if err := store.BindNonce(msg.Nonce); err != nil {
				if errors.Is(err, storage.ErrNonceAlreadyUsed) {
					http.Error(w, "replayed nonce", http.StatusUnauthorized)
					return
				}
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := peer.VerifyGeneral(msg, r.Method, r.URL.Path, body); err != nil {
				http.Error(w, fmt.Sprintf("authentication failed: %v", err), http.StatusUnauthorized)
				return
			}

			session.IsAuthenticated = true
			session.LastUpdate = time.Now()
			if err := store.UpdateSession(session); err != nil {
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), PeerIdentityKey, msg.IdentityKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPeerIdentity extracts the authenticated peer's identity key from the
// request context.
func GetPeerIdentity(r *http.Request) (string, bool) {
	identity, ok := r.Context().Value(PeerIdentityKey).(string)
	return identity, ok
}
