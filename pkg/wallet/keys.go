package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
)

// RootKey is a long-lived root identity: a private scalar d and its public
// point P = d*G. Immutable once constructed.
type RootKey struct {
	crv  curve.Curve
	priv curve.Scalar
	pub  curve.Point
}

// NewRootKey wraps an existing private scalar as a root identity.
func NewRootKey(crv curve.Curve, priv curve.Scalar) (*RootKey, error) {
	if priv == nil || priv.IsZero() {
		return nil, curve.ErrInvalidScalar
	}

	pub := crv.ScalarBaseMult(priv)
	if pub == nil {
		return nil, curve.ErrInvalidScalar
	}

	return &RootKey{crv: crv, priv: priv, pub: pub}, nil
}

// RootKeyFromBytes builds a root identity from a 32-byte big-endian scalar.
func RootKeyFromBytes(crv curve.Curve, b []byte) (*RootKey, error) {
	priv, err := crv.ParseScalar(b)
	if err != nil {
		return nil, err
	}
	return NewRootKey(crv, priv)
}

// RootKeyFromWIF builds a root identity from a WIF-encoded private key.
func RootKeyFromWIF(crv curve.Curve, wif string) (*RootKey, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("decode wif: %w", err)
	}
	return RootKeyFromBytes(crv, decoded.PrivKey.Serialize())
}

// GenerateRootKey creates a fresh random root identity.
func GenerateRootKey(crv curve.Curve) (*RootKey, error) {
	priv, err := crv.GenerateScalar()
	if err != nil {
		return nil, err
	}
	return NewRootKey(crv, priv)
}

// PublicKey returns the root's public identity point.
func (r *RootKey) PublicKey() curve.Point {
	return r.pub
}

// PublicKeyHex returns the compressed public point as lowercase hex, the
// identity key format used on the wire.
func (r *RootKey) PublicKeyHex() string {
	return hex.EncodeToString(r.pub.Bytes())
}

// AnyonePublicKey returns the fixed "anyone" base point: the curve
// generator, i.e. the public key of the unit scalar. All conforming
// implementations resolve the anyone counterparty to this point.
func AnyonePublicKey(crv curve.Curve) curve.Point {
	return crv.Generator()
}

// PublicKeyFromHex parses a compressed identity key from lowercase hex.
func PublicKeyFromHex(crv curve.Curve, s string) (curve.Point, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", curve.ErrInvalidPoint, err)
	}
	return crv.ParsePoint(b)
}
