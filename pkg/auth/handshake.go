package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/storage"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/wallet"
)

// Version is the auth protocol version spoken by this implementation.
const Version = "0.1"

// AuthProtocol is the protocol descriptor under which every handshake and
// general-message key is derived.
var AuthProtocol = wallet.Protocol{
	SecurityLevel: wallet.SecurityLevelEveryAppAndCounterparty,
	Protocol:      "auth message signature",
}

// MessageType discriminates handshake and post-handshake messages.
type MessageType string

const (
	// MessageTypeInitialRequest opens a handshake.
	MessageTypeInitialRequest MessageType = "initialRequest"

	// MessageTypeInitialResponse answers an initial request with the
	// responder's session nonce and proof of identity.
	MessageTypeInitialResponse MessageType = "initialResponse"

	// MessageTypeGeneral is any authenticated message after the handshake.
	MessageTypeGeneral MessageType = "general"
)

// AuthMessage is the wire form of a handshake or general message.
type AuthMessage struct {
	Version      string      `json:"version"`
	MessageType  MessageType `json:"messageType"`
	IdentityKey  string      `json:"identityKey"`
	InitialNonce string      `json:"initialNonce,omitempty"`
	YourNonce    string      `json:"yourNonce,omitempty"`
	Nonce        string      `json:"nonce,omitempty"`
	RequestID    string      `json:"requestId,omitempty"`
	Payload      []byte      `json:"payload,omitempty"`
	Signature    string      `json:"signature,omitempty"`
}

var (
	// ErrUnsupportedVersion indicates a peer speaking a different version.
	ErrUnsupportedVersion = fmt.Errorf("unsupported auth version")

	// ErrInvalidMessage indicates a structurally invalid auth message.
	ErrInvalidMessage = fmt.Errorf("invalid auth message")

	// ErrInvalidSignature indicates a signature that failed verification.
	ErrInvalidSignature = fmt.Errorf("invalid signature")
)

// Peer runs the handshake for one root identity, in either role. A Peer is
// safe for concurrent use; all per-session state lives in the session store.
type Peer struct {
	crv      curve.Curve
	deriver  *wallet.KeyDeriver
	sessions storage.SessionStore
}

// NewPeer creates a peer around a root identity and a session store.
func NewPeer(root *wallet.RootKey, sessions storage.SessionStore) *Peer {
	deriver := wallet.NewKeyDeriver(root)
	return &Peer{
		crv:      deriver.Curve(),
		deriver:  deriver,
		sessions: sessions,
	}
}

// IdentityKey returns the peer's public identity point.
func (p *Peer) IdentityKey() curve.Point {
	return p.deriver.IdentityKey()
}

// IdentityKeyHex returns the compressed identity key as lowercase hex.
func (p *Peer) IdentityKeyHex() string {
	return fmt.Sprintf("%x", p.deriver.IdentityKey().Bytes())
}

// NewInitialRequest builds the message that opens a handshake. The caller
// keeps msg.InitialNonce to verify the response against.
func (p *Peer) NewInitialRequest() (*AuthMessage, error) {
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}

	return &AuthMessage{
		Version:      Version,
		MessageType:  MessageTypeInitialRequest,
		IdentityKey:  p.IdentityKeyHex(),
		InitialNonce: nonce,
	}, nil
}

// HandleInitialRequest processes an initiator's opening message and builds
// the signed response. The responder mints a session nonce, records the
// pending session, derives its signing key for this session's key id with
// the initiator as counterparty, and signs the 64-byte signing-direction
// payload (initiator nonce then session nonce).
func (p *Peer) HandleInitialRequest(msg *AuthMessage) (*AuthMessage, error) {
	if msg.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, msg.Version)
	}
	if msg.MessageType != MessageTypeInitialRequest {
		return nil, fmt.Errorf("%w: unexpected message type %q", ErrInvalidMessage, msg.MessageType)
	}
	if _, err := DecodeNonce(msg.InitialNonce); err != nil {
		return nil, err
	}

	peerIdentity, err := wallet.PublicKeyFromHex(p.crv, msg.IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}

	sessionNonce, err := NewNonce()
	if err != nil {
		return nil, err
	}

	session := &storage.PeerSession{
		SessionNonce:    sessionNonce,
		PeerNonce:       msg.InitialNonce,
		PeerIdentityKey: msg.IdentityKey,
		LastUpdate:      time.Now(),
	}
	if err := p.sessions.AddSession(session); err != nil {
		return nil, err
	}

	keyID := SessionKeyID(msg.InitialNonce, sessionNonce)
	priv, err := p.deriver.DerivePrivateKey(AuthProtocol, keyID, wallet.CounterpartyOther(peerIdentity))
	if err != nil {
		return nil, err
	}

	data, err := SigningData(msg.InitialNonce, sessionNonce)
	if err != nil {
		return nil, err
	}

	sig, err := signDigest(priv, data)
	if err != nil {
		return nil, err
	}

	return &AuthMessage{
		Version:      Version,
		MessageType:  MessageTypeInitialResponse,
		IdentityKey:  p.IdentityKeyHex(),
		InitialNonce: sessionNonce,
		YourNonce:    msg.InitialNonce,
		Signature:    sig,
	}, nil
}

// VerifyInitialResponse checks a responder's reply against the nonce the
// initiator sent and, on success, records the authenticated session.
//
// The verifying key is the mirror of the responder's signing key:
// DeriveCounterpartyPublicKey with the responder as counterparty, under the
// same session key id. The payload is assembled in the verification
// direction: from the verifier's side the response's own nonce takes the
// initial slot and our original nonce the session slot, which lands on the
// same 64 bytes the responder signed.
func (p *Peer) VerifyInitialResponse(initialNonce string, resp *AuthMessage) (*storage.PeerSession, error) {
	if resp.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, resp.Version)
	}
	if resp.MessageType != MessageTypeInitialResponse {
		return nil, fmt.Errorf("%w: unexpected message type %q", ErrInvalidMessage, resp.MessageType)
	}
	if resp.YourNonce != initialNonce {
		return nil, fmt.Errorf("%w: response does not echo our nonce", ErrInvalidMessage)
	}

	responderIdentity, err := wallet.PublicKeyFromHex(p.crv, resp.IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}

	keyID := SessionKeyID(initialNonce, resp.InitialNonce)
	pub, err := p.deriver.DeriveCounterpartyPublicKey(AuthProtocol, keyID, wallet.CounterpartyOther(responderIdentity))
	if err != nil {
		return nil, err
	}

	data, err := VerificationData(resp.InitialNonce, initialNonce)
	if err != nil {
		return nil, err
	}

	if err := verifyDigest(pub, data, resp.Signature); err != nil {
		return nil, err
	}

	session := &storage.PeerSession{
		IsAuthenticated: true,
		SessionNonce:    initialNonce,
		PeerNonce:       resp.InitialNonce,
		PeerIdentityKey: resp.IdentityKey,
		LastUpdate:      time.Now(),
	}
	if err := p.sessions.AddSession(session); err != nil {
		return nil, err
	}

	return session, nil
}

// NewMutualProof builds the initiator's answering proof: a signature over
// the verification-direction payload (session nonce then initial nonce)
// under the same session key id the responder signed with. Sending it back
// completes mutual authentication; until then only the responder has proven
// its identity.
func (p *Peer) NewMutualProof(session *storage.PeerSession) (*AuthMessage, error) {
	peerIdentity, err := wallet.PublicKeyFromHex(p.crv, session.PeerIdentityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}

	keyID := SessionKeyID(session.SessionNonce, session.PeerNonce)
	priv, err := p.deriver.DerivePrivateKey(AuthProtocol, keyID, wallet.CounterpartyOther(peerIdentity))
	if err != nil {
		return nil, err
	}

	data, err := VerificationData(session.SessionNonce, session.PeerNonce)
	if err != nil {
		return nil, err
	}

	sig, err := signDigest(priv, data)
	if err != nil {
		return nil, err
	}

	return &AuthMessage{
		Version:      Version,
		MessageType:  MessageTypeInitialResponse,
		IdentityKey:  p.IdentityKeyHex(),
		InitialNonce: session.SessionNonce,
		YourNonce:    session.PeerNonce,
		Signature:    sig,
	}, nil
}

// VerifyMutualProof checks the initiator's answering proof against the
// responder's stored session and, on success, marks the session
// authenticated.
func (p *Peer) VerifyMutualProof(msg *AuthMessage) error {
	if msg.Version != Version {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, msg.Version)
	}
	if msg.MessageType != MessageTypeInitialResponse {
		return fmt.Errorf("%w: unexpected message type %q", ErrInvalidMessage, msg.MessageType)
	}

	session, err := p.sessions.GetSessionByIdentity(msg.IdentityKey)
	if err != nil {
		return fmt.Errorf("%w: no session for peer", ErrInvalidMessage)
	}
	if msg.YourNonce != session.SessionNonce || msg.InitialNonce != session.PeerNonce {
		return fmt.Errorf("%w: nonce pair does not match session", ErrInvalidMessage)
	}

	initiatorIdentity, err := wallet.PublicKeyFromHex(p.crv, msg.IdentityKey)
	if err != nil {
		return fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}

	// The responder reaches the same key id from its side: the initiator's
	// nonce is this session's peer nonce.
	keyID := SessionKeyID(session.PeerNonce, session.SessionNonce)
	pub, err := p.deriver.DeriveCounterpartyPublicKey(AuthProtocol, keyID, wallet.CounterpartyOther(initiatorIdentity))
	if err != nil {
		return err
	}

	data, err := VerificationData(session.PeerNonce, session.SessionNonce)
	if err != nil {
		return err
	}

	if err := verifyDigest(pub, data, msg.Signature); err != nil {
		return err
	}

	session.IsAuthenticated = true
	session.LastUpdate = time.Now()
	return p.sessions.UpdateSession(session)
}

// SignRequest builds the general-message headers for one HTTP request over
// an established session: a fresh nonce, the peer's session nonce echoed
// back, and a signature over the request digest under a key derived for
// exactly this nonce pair.
func (p *Peer) SignRequest(session *storage.PeerSession, requestID, method, path string, body []byte) (*AuthMessage, error) {
	peerIdentity, err := wallet.PublicKeyFromHex(p.crv, session.PeerIdentityKey)
	if err != nil {
		return nil, fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}

	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}

	keyID := SessionKeyID(nonce, session.PeerNonce)
	priv, err := p.deriver.DerivePrivateKey(AuthProtocol, keyID, wallet.CounterpartyOther(peerIdentity))
	if err != nil {
		return nil, err
	}

	digest := RequestDigest(requestID, method, path, body)
	sig, err := signDigest(priv, digest)
	if err != nil {
		return nil, err
	}

	return &AuthMessage{
		Version:     Version,
		MessageType: MessageTypeGeneral,
		IdentityKey: p.IdentityKeyHex(),
		Nonce:       nonce,
		YourNonce:   session.PeerNonce,
		RequestID:   requestID,
		Signature:   sig,
	}, nil
}

// VerifyGeneral checks a general message against the request it claims to
// authenticate, using the mirror public key for the message's nonce pair.
func (p *Peer) VerifyGeneral(msg *AuthMessage, method, path string, body []byte) error {
	if msg.Version != Version {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, msg.Version)
	}
	if msg.MessageType != MessageTypeGeneral {
		return fmt.Errorf("%w: unexpected message type %q", ErrInvalidMessage, msg.MessageType)
	}
	if _, err := DecodeNonce(msg.Nonce); err != nil {
		return err
	}

	senderIdentity, err := wallet.PublicKeyFromHex(p.crv, msg.IdentityKey)
	if err != nil {
		return fmt.Errorf("%w: identity key: %v", ErrInvalidMessage, err)
	}

	keyID := SessionKeyID(msg.Nonce, msg.YourNonce)
	pub, err := p.deriver.DeriveCounterpartyPublicKey(AuthProtocol, keyID, wallet.CounterpartyOther(senderIdentity))
	if err != nil {
		return err
	}

	digest := RequestDigest(msg.RequestID, method, path, body)
	return verifyDigest(pub, digest, msg.Signature)
}

// signDigest signs SHA-256 of data with the derived private scalar and
// returns the DER signature, base64-encoded.
func signDigest(priv curve.Scalar, data []byte) (string, error) {
	privKey, _ := btcec.PrivKeyFromBytes(priv.Bytes())
	digest := sha256.Sum256(data)
	sig := ecdsa.Sign(privKey, digest[:])
	return base64.StdEncoding.EncodeToString(sig.Serialize()), nil
}

// verifyDigest checks a base64 DER signature over SHA-256 of data against a
// derived public point.
func verifyDigest(pub curve.Point, data []byte, signature string) error {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	sig, err := ecdsa.ParseDERSignature(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	pubKey, err := btcec.ParsePubKey(pub.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	digest := sha256.Sum256(data)
	if !sig.Verify(digest[:], pubKey) {
		return ErrInvalidSignature
	}

	return nil
}
