package auth

import "crypto/sha256"

// HTTP header names for authenticated general messages. The x-bsv-auth-*
// prefix is fixed by the transport convention shared with the other
// conforming implementations.
const (
	// HeaderPrefix is the common prefix for all auth headers.
	HeaderPrefix = "x-bsv-auth-"

	// HeaderVersion carries the auth protocol version.
	HeaderVersion = HeaderPrefix + "version"

	// HeaderMessageType carries the message type.
	HeaderMessageType = HeaderPrefix + "message-type"

	// HeaderIdentityKey carries the sender's compressed identity key (hex).
	HeaderIdentityKey = HeaderPrefix + "identity-key"

	// HeaderNonce carries the sender's fresh nonce.
	HeaderNonce = HeaderPrefix + "nonce"

	// HeaderYourNonce echoes the recipient's session nonce.
	HeaderYourNonce = HeaderPrefix + "your-nonce"

	// HeaderSignature carries the base64 DER signature.
	HeaderSignature = HeaderPrefix + "signature"

	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = HeaderPrefix + "request-id"
)

// RequestDigestDomain is the domain separator for general-message request
// digests. Interop constant; no other hash in the system may reuse it.
const RequestDigestDomain = "brc104/1/request"

// RequestDigest binds a general-message signature to one specific HTTP
// request: a domain-separated SHA-256 over the request id, method, path and
// body. Binding the method and path prevents a signature for one endpoint
// being replayed against another; the request id ties the signature to its
// correlation header.
func RequestDigest(requestID, method, path string, body []byte) []byte {
	h := sha256.New()
	h.Write([]byte(RequestDigestDomain))
	h.Write([]byte(requestID))
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return h.Sum(nil)
}
