package curve

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Secp256k1Point represents a point on the secp256k1 curve
type Secp256k1Point struct {
	point *btcec.PublicKey
}

// Bytes returns the compressed point encoding (33 bytes)
func (p *Secp256k1Point) Bytes() []byte {
	if p.point == nil {
		return nil
	}
	return p.point.SerializeCompressed()
}

// Equal checks if two points are equal
func (p *Secp256k1Point) Equal(other Point) bool {
	otherSecp, ok := other.(*Secp256k1Point)
	if !ok {
		return false
	}
	if p.point == nil && otherSecp.point == nil {
		return true
	}
	if p.point == nil || otherSecp.point == nil {
		return false
	}
	return p.point.IsEqual(otherSecp.point)
}

// IsIdentity checks if this is the identity point (point at infinity).
// Identity results are represented as nil internally; parsing rejects
// encodings of the identity outright.
func (p *Secp256k1Point) IsIdentity() bool {
	return p == nil || p.point == nil
}

// Secp256k1Scalar represents a scalar for secp256k1 operations
type Secp256k1Scalar struct {
	scalar *big.Int
}

// Bytes returns the scalar as a 32-byte slice (big-endian)
func (s *Secp256k1Scalar) Bytes() []byte {
	if s.scalar == nil {
		return nil
	}
	return s.scalar.FillBytes(make([]byte, 32))
}

// BigInt returns a copy of the scalar as a big.Int
func (s *Secp256k1Scalar) BigInt() *big.Int {
	return new(big.Int).Set(s.scalar)
}

// IsZero reports whether the scalar is zero
func (s *Secp256k1Scalar) IsZero() bool {
	return s.scalar == nil || s.scalar.Sign() == 0
}

// Secp256k1Curve implements the Curve interface for secp256k1
type Secp256k1Curve struct{}

// NewSecp256k1 creates a new secp256k1 curve instance
func NewSecp256k1() Curve {
	return &Secp256k1Curve{}
}

// Name returns the curve name
func (c *Secp256k1Curve) Name() string {
	return "secp256k1"
}

// ParsePoint parses a point from bytes (33-byte compressed or 65-byte uncompressed)
func (c *Secp256k1Curve) ParsePoint(b []byte) (Point, error) {
	if len(b) == 0 {
		return nil, ErrInvalidPoint
	}

	pubKey, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}

	point := &Secp256k1Point{point: pubKey}

	if err := c.ValidatePoint(point); err != nil {
		return nil, err
	}

	return point, nil
}

// ParseScalar parses a scalar from bytes (32 bytes, big-endian).
// Rejects zero and values >= N.
func (c *Secp256k1Curve) ParseScalar(b []byte) (Scalar, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidScalar, len(b))
	}

	scalar := new(big.Int).SetBytes(b)

	if scalar.Sign() <= 0 || scalar.Cmp(c.Order()) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidScalar)
	}

	return &Secp256k1Scalar{scalar: scalar}, nil
}

// ReduceScalar interprets b as a big-endian integer reduced mod N.
// The result may be zero; callers must check IsZero where zero is unsafe.
func (c *Secp256k1Curve) ReduceScalar(b []byte) Scalar {
	scalar := new(big.Int).SetBytes(b)
	scalar.Mod(scalar, c.Order())
	return &Secp256k1Scalar{scalar: scalar}
}

// ScalarBaseMult computes s * G (scalar multiplication with generator)
func (c *Secp256k1Curve) ScalarBaseMult(s Scalar) Point {
	secpScalar, ok := s.(*Secp256k1Scalar)
	if !ok || secpScalar.IsZero() {
		return nil
	}

	_, pubKey := btcec.PrivKeyFromBytes(secpScalar.Bytes())
	return &Secp256k1Point{point: pubKey}
}

// ScalarMult computes s * P (scalar multiplication)
func (c *Secp256k1Curve) ScalarMult(p Point, s Scalar) Point {
	secpPoint, ok := p.(*Secp256k1Point)
	if !ok || secpPoint.IsIdentity() {
		return nil
	}
	secpScalar, ok := s.(*Secp256k1Scalar)
	if !ok || secpScalar.IsZero() {
		return nil
	}

	px, py := secpPoint.point.X(), secpPoint.point.Y()
	rx, ry := btcec.S256().ScalarMult(px, py, secpScalar.Bytes())

	return pointFromCoords(rx, ry)
}

// ScalarAdd computes (a + b) mod N. The result may be zero.
func (c *Secp256k1Curve) ScalarAdd(a, b Scalar) Scalar {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	sum.Mod(sum, c.Order())
	return &Secp256k1Scalar{scalar: sum}
}

// Add adds two points: P + Q
func (c *Secp256k1Curve) Add(p, q Point) Point {
	secpP, ok := p.(*Secp256k1Point)
	if !ok || secpP.IsIdentity() {
		return nil
	}
	secpQ, ok := q.(*Secp256k1Point)
	if !ok || secpQ.IsIdentity() {
		return nil
	}

	px, py := secpP.point.X(), secpP.point.Y()
	qx, qy := secpQ.point.X(), secpQ.point.Y()
	rx, ry := btcec.S256().Add(px, py, qx, qy)

	return pointFromCoords(rx, ry)
}

// Generator returns the fixed base point G
func (c *Secp256k1Curve) Generator() Point {
	one := &Secp256k1Scalar{scalar: big.NewInt(1)}
	return c.ScalarBaseMult(one)
}

// Order returns the order of the secp256k1 group
func (c *Secp256k1Curve) Order() *big.Int {
	return btcec.S256().N
}

// GenerateScalar generates a cryptographically secure random scalar
func (c *Secp256k1Curve) GenerateScalar() (Scalar, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate scalar: %w", err)
	}

	scalar := new(big.Int).SetBytes(privKey.Serialize())
	return &Secp256k1Scalar{scalar: scalar}, nil
}

// ValidatePoint validates that a point is on the curve and not the identity
func (c *Secp256k1Curve) ValidatePoint(p Point) error {
	secpPoint, ok := p.(*Secp256k1Point)
	if !ok {
		return ErrInvalidPoint
	}

	if secpPoint.IsIdentity() {
		return ErrIdentityPoint
	}

	if !btcec.S256().IsOnCurve(secpPoint.point.X(), secpPoint.point.Y()) {
		return ErrPointNotOnCurve
	}

	if secpPoint.point.X().Sign() == 0 && secpPoint.point.Y().Sign() == 0 {
		return ErrIdentityPoint
	}

	return nil
}

// pointFromCoords rebuilds a point from affine coordinates, mapping the
// point at infinity (0,0 from btcec arithmetic) to nil.
func pointFromCoords(x, y *big.Int) Point {
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil
	}

	encoded := append([]byte{0x04},
		append(x.FillBytes(make([]byte, 32)), y.FillBytes(make([]byte, 32))...)...)
	pubKey, err := btcec.ParsePubKey(encoded)
	if err != nil {
		return nil
	}
	return &Secp256k1Point{point: pubKey}
}
