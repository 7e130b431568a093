package wallet

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
)

// BranchScalarDomain is the domain separator mixed into every branch scalar
// HMAC. It is an interoperability constant: all conforming implementations
// must use the same tag, and no other HMAC in the system may reuse it.
const BranchScalarDomain = "brc42/1/branch"

// DeriveBranchScalar maps an invoice number and a reference point to a
// scalar in [1, N-1]:
//
//	branch = HMAC-SHA256(key = compressed(referencePoint),
//	                     msg = BranchScalarDomain || invoiceNumber) mod N
//
// The reference point keys the HMAC, so two parties that agree on the
// reference point and the invoice number derive the same branch scalar.
// The scalar is deterministic and not secret on its own, but it correlates
// derived keys with root keys, so invoice numbers must never be reused
// across unrelated derivations.
//
// A zero result is rejected with ErrDegenerateScalar: a zero branch scalar
// would collapse the derived key onto the reference key. The identity point
// is rejected with ErrInvalidReferencePoint.
func DeriveBranchScalar(crv curve.Curve, invoiceNumber string, referencePoint curve.Point) (curve.Scalar, error) {
	if referencePoint == nil || referencePoint.IsIdentity() {
		return nil, ErrInvalidReferencePoint
	}
	if invoiceNumber == "" {
		return nil, fmt.Errorf("%w: empty invoice number", ErrInvalidProtocol)
	}

	mac := hmac.New(sha256.New, referencePoint.Bytes())
	mac.Write([]byte(BranchScalarDomain))
	mac.Write([]byte(invoiceNumber))

	branch := crv.ReduceScalar(mac.Sum(nil))
	if branch.IsZero() {
		return nil, ErrDegenerateScalar
	}

	return branch, nil
}
