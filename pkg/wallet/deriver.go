package wallet

import (
	"fmt"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
)

// KeyDeriver derives child keys from a root identity. All methods are pure
// functions of their inputs and the root key; a KeyDeriver is safe for
// concurrent use.
//
// The self/counterparty asymmetry is deliberate and load-bearing:
//
//   - DeriveOwnPublicKey answers "what public key corresponds to the private
//     key I would derive for myself in this context" and is computed by
//     deriving that private key and multiplying by the generator. There is
//     no other valid way to compute it.
//
//   - DeriveCounterpartyPublicKey answers "what public key does my
//     counterparty hold for this context, from their own perspective" and
//     offsets the counterparty's point instead of the root's.
//
// The two reference-point choices live in separately named methods rather
// than behind a flag so a future edit cannot silently swap them.
type KeyDeriver struct {
	crv  curve.Curve
	root *RootKey
}

// NewKeyDeriver creates a deriver for the given root identity.
func NewKeyDeriver(root *RootKey) *KeyDeriver {
	return &KeyDeriver{crv: root.crv, root: root}
}

// Curve returns the curve the deriver operates on.
func (kd *KeyDeriver) Curve() curve.Curve {
	return kd.crv
}

// IdentityKey returns the root's public identity point.
func (kd *KeyDeriver) IdentityKey() curve.Point {
	return kd.root.pub
}

// DerivePrivateKey derives the root's usable private key for the given
// context: (d + branchScalar) mod N.
//
// The counterparty must be Other or Anyone; a party cannot derive a private
// key "for itself" without another party's point as the binding reference,
// so Self fails with ErrInvalidCounterpartyForPrivateDerivation.
func (kd *KeyDeriver) DerivePrivateKey(protocol Protocol, keyID string, counterparty Counterparty) (curve.Scalar, error) {
	if counterparty.Type == CounterpartyTypeSelf {
		return nil, ErrInvalidCounterpartyForPrivateDerivation
	}

	branch, err := kd.branchScalar(protocol, keyID, counterparty)
	if err != nil {
		return nil, err
	}

	derived := kd.crv.ScalarAdd(kd.root.priv, branch)
	if derived.IsZero() {
		return nil, ErrDegenerateScalar
	}

	return derived, nil
}

// DeriveOwnPublicKey derives the public key matching DerivePrivateKey for
// the same context.
//
// This is computed as G * DerivePrivateKey(...): deriving the private key
// first and multiplying by the generator is the only valid path. Offsetting
// the root's public point directly invites keying the branch scalar on the
// wrong reference, which yields keys that look self-consistent but are
// incompatible with every other conforming implementation.
func (kd *KeyDeriver) DeriveOwnPublicKey(protocol Protocol, keyID string, counterparty Counterparty) (curve.Point, error) {
	priv, err := kd.DerivePrivateKey(protocol, keyID, counterparty)
	if err != nil {
		return nil, err
	}

	pub := kd.crv.ScalarBaseMult(priv)
	if pub == nil {
		return nil, ErrDerivationFailed
	}

	return pub, nil
}

// DeriveCounterpartyPublicKey derives the public key the counterparty holds
// for this context from their own perspective: Q + branchScalar*G, the
// point the counterparty reaches by running DerivePrivateKey with this
// root as their counterparty.
//
// Self is rejected with ErrInvalidCounterparty: deriving "the key my
// counterparty holds" relative to one's own point has no established
// semantics, so it is an explicit error rather than a guess.
func (kd *KeyDeriver) DeriveCounterpartyPublicKey(protocol Protocol, keyID string, counterparty Counterparty) (curve.Point, error) {
	if counterparty.Type == CounterpartyTypeSelf {
		return nil, ErrInvalidCounterparty
	}

	q, err := kd.resolveCounterparty(counterparty)
	if err != nil {
		return nil, err
	}

	branch, err := kd.branchScalar(protocol, keyID, counterparty)
	if err != nil {
		return nil, err
	}

	offset := kd.crv.ScalarBaseMult(branch)
	if offset == nil {
		return nil, ErrDerivationFailed
	}

	derived := kd.crv.Add(q, offset)
	if derived == nil || derived.IsIdentity() {
		return nil, ErrDerivationFailed
	}

	return derived, nil
}

// branchScalar computes the branch scalar for a context. The HMAC reference
// point is the shared point d*Q, which both parties reach from opposite
// sides: my private scalar with their public point equals their private
// scalar with mine. Keying on a bare identity point instead would make the
// two sides diverge.
func (kd *KeyDeriver) branchScalar(protocol Protocol, keyID string, counterparty Counterparty) (curve.Scalar, error) {
	q, err := kd.resolveCounterparty(counterparty)
	if err != nil {
		return nil, err
	}

	invoiceNumber, err := BuildInvoiceNumber(protocol, keyID)
	if err != nil {
		return nil, err
	}

	shared := kd.crv.ScalarMult(q, kd.root.priv)
	if shared == nil {
		return nil, fmt.Errorf("%w: shared point is identity", ErrDerivationFailed)
	}

	branch, err := DeriveBranchScalar(kd.crv, invoiceNumber, shared)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return branch, nil
}

// resolveCounterparty maps a counterparty to its reference public key.
func (kd *KeyDeriver) resolveCounterparty(counterparty Counterparty) (curve.Point, error) {
	switch counterparty.Type {
	case CounterpartyTypeAnyone:
		return AnyonePublicKey(kd.crv), nil
	case CounterpartyTypeOther:
		if counterparty.Counterparty == nil {
			return nil, fmt.Errorf("%w: missing counterparty point", ErrInvalidCounterparty)
		}
		if err := kd.crv.ValidatePoint(counterparty.Counterparty); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCounterparty, err)
		}
		return counterparty.Counterparty, nil
	case CounterpartyTypeSelf:
		return kd.root.pub, nil
	default:
		return nil, ErrInvalidCounterparty
	}
}
