// Package curve adapts the elliptic curve group used for identity-bound key
// derivation behind small Point/Scalar/Curve interfaces.
//
// # Why an adapter
//
// The derivation scheme only needs a handful of group operations:
//
//   - Point Addition: P + Q = R
//   - Scalar Multiplication: s * P, and s * G with the fixed generator G
//   - Scalar addition modulo the group order N
//
// Everything protocol-specific (invoice numbers, branch scalars, nonce
// payloads) lives above this package and treats the curve as opaque. The
// single implementation is secp256k1, which the interop constants of the
// protocol fix: compressed 33-byte points, 32-byte big-endian scalars, WIF
// root keys, and the generator as the shared "anyone" base point.
//
// # Identity point
//
// The identity (point at infinity) is never a valid key. Parsing rejects it,
// and arithmetic that lands on it returns nil so callers surface a structured
// failure instead of a degenerate key.
package curve

import (
	"fmt"
	"math/big"
)

// Point represents a point on the curve.
type Point interface {
	// Bytes returns the canonical 33-byte compressed serialization.
	Bytes() []byte

	// Equal reports whether two points are the same group element.
	Equal(other Point) bool

	// IsIdentity reports whether this is the identity point (point at
	// infinity). Identity is a derivation failure, never a usable key.
	IsIdentity() bool
}

// Scalar represents an integer modulo the group order N.
//
// Scalars are private keys, branch offsets, and their sums. Valid parsed
// scalars are in [1, N-1]; reduced scalars may be zero and must be checked
// with IsZero before use.
type Scalar interface {
	// Bytes returns the scalar as 32 bytes, big-endian, zero-padded.
	Bytes() []byte

	// BigInt returns a copy of the scalar as a big.Int.
	BigInt() *big.Int

	// IsZero reports whether the scalar is zero.
	IsZero() bool
}

// Curve abstracts the group operations the key deriver consumes.
type Curve interface {
	// Name returns the curve identifier ("secp256k1").
	Name() string

	// ParsePoint deserializes and validates a point from 33-byte compressed
	// or 65-byte uncompressed encoding. Rejects off-curve and identity.
	ParsePoint(b []byte) (Point, error)

	// ParseScalar deserializes a 32-byte big-endian scalar in [1, N-1].
	ParseScalar(b []byte) (Scalar, error)

	// ReduceScalar interprets b as a big-endian integer and reduces it mod N.
	// Unlike ParseScalar the result may be zero; callers decide whether zero
	// is an error in their context.
	ReduceScalar(b []byte) Scalar

	// ScalarBaseMult computes s * G.
	ScalarBaseMult(s Scalar) Point

	// ScalarMult computes s * P. Returns nil if the result is the identity.
	ScalarMult(p Point, s Scalar) Point

	// ScalarAdd computes (a + b) mod N. The result may be zero.
	ScalarAdd(a, b Scalar) Scalar

	// Add computes P + Q. Returns nil if the result is the identity.
	Add(p, q Point) Point

	// Generator returns the fixed base point G.
	Generator() Point

	// Order returns N, the order of the group.
	Order() *big.Int

	// GenerateScalar creates a cryptographically secure random scalar
	// in [1, N-1].
	GenerateScalar() (Scalar, error)

	// ValidatePoint checks that a point is on the curve and not identity.
	ValidatePoint(p Point) error
}

var (
	// ErrInvalidPoint indicates a malformed or off-curve point encoding.
	ErrInvalidPoint = fmt.Errorf("invalid point")

	// ErrInvalidScalar indicates a scalar outside [1, N-1].
	ErrInvalidScalar = fmt.Errorf("invalid scalar")

	// ErrIdentityPoint indicates the point is the identity point.
	ErrIdentityPoint = fmt.Errorf("point is identity")

	// ErrPointNotOnCurve indicates the point is not on the curve.
	ErrPointNotOnCurve = fmt.Errorf("point is not on curve")
)
