package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// WellKnownAuthPath is the handshake endpoint path.
const WellKnownAuthPath = "/.well-known/auth"

// Handlers exposes the handshake over HTTP for one peer identity.
type Handlers struct {
	peer *Peer
}

// NewHandlers creates handshake handlers around a peer.
func NewHandlers(peer *Peer) *Handlers {
	return &Handlers{peer: peer}
}

// Handshake handles POST /.well-known/auth. An initialRequest body is
// answered with a signed initialResponse; an initialResponse body is the
// initiator's mutual proof and is verified against the pending session.
func (h *Handlers) Handshake(w http.ResponseWriter, r *http.Request) {
	var msg AuthMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if msg.MessageType == MessageTypeInitialResponse {
		if err := h.peer.VerifyMutualProof(&msg); err != nil {
			writeHandshakeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"authenticated":true}`)
		return
	}

	resp, err := h.peer.HandleInitialRequest(&msg)
	if err != nil {
		writeHandshakeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func writeHandshakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrInvalidMessage),
		errors.Is(err, ErrInvalidEncoding),
		errors.Is(err, ErrInvalidNonceLength):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "handshake failed", http.StatusInternalServerError)
	}
}

// WriteRequestHeaders copies a general message onto an outgoing request's
// headers.
func WriteRequestHeaders(header http.Header, msg *AuthMessage) {
	header.Set(HeaderVersion, msg.Version)
	header.Set(HeaderMessageType, string(msg.MessageType))
	header.Set(HeaderIdentityKey, msg.IdentityKey)
	header.Set(HeaderNonce, msg.Nonce)
	header.Set(HeaderYourNonce, msg.YourNonce)
	header.Set(HeaderRequestID, msg.RequestID)
	header.Set(HeaderSignature, msg.Signature)
}

// MessageFromHeaders reconstructs a general message from an incoming
// request's headers.
func MessageFromHeaders(header http.Header) (*AuthMessage, error) {
	msg := &AuthMessage{
		Version:     header.Get(HeaderVersion),
		MessageType: MessageType(header.Get(HeaderMessageType)),
		IdentityKey: header.Get(HeaderIdentityKey),
		Nonce:       header.Get(HeaderNonce),
		YourNonce:   header.Get(HeaderYourNonce),
		RequestID:   header.Get(HeaderRequestID),
		Signature:   header.Get(HeaderSignature),
	}

	if msg.IdentityKey == "" || msg.Nonce == "" || msg.YourNonce == "" || msg.Signature == "" {
		return nil, fmt.Errorf("%w: missing auth headers", ErrInvalidMessage)
	}

	return msg, nil
}
