package wallet

import "fmt"

var (
	// ErrInvalidProtocol indicates a malformed protocol descriptor
	// (bad security level or protocol name).
	ErrInvalidProtocol = fmt.Errorf("invalid protocol descriptor")

	// ErrInvalidKeyID indicates an empty or oversized key identifier.
	ErrInvalidKeyID = fmt.Errorf("invalid key id")

	// ErrInvalidCounterparty indicates a counterparty that cannot be resolved
	// to a reference public key for the requested operation.
	ErrInvalidCounterparty = fmt.Errorf("invalid counterparty")

	// ErrInvalidCounterpartyForPrivateDerivation indicates an attempt to
	// derive a private key with the self counterparty. A private derivation
	// needs another party's point as its binding reference.
	ErrInvalidCounterpartyForPrivateDerivation = fmt.Errorf("self counterparty is not valid for private key derivation")

	// ErrInvalidReferencePoint indicates a nil or identity reference point
	// fed to the branch scalar deriver.
	ErrInvalidReferencePoint = fmt.Errorf("invalid reference point")

	// ErrDegenerateScalar indicates a derivation that reduced to zero.
	// A zero scalar would collapse the derived key onto its base key, so it
	// is always surfaced, never substituted.
	ErrDegenerateScalar = fmt.Errorf("degenerate zero scalar")

	// ErrDerivationFailed wraps lower-level failures of the deriver.
	ErrDerivationFailed = fmt.Errorf("key derivation failed")
)
