// Package wallet implements deterministic, identity-bound key derivation:
// given a long-lived root key pair, a protocol descriptor, a key identifier
// and a counterparty's public identity, it derives child keys such that two
// independent parties derive mirror-image keys from opposite sides.
//
// The derivation chain is: protocol descriptor + key id -> invoice number
// (a canonical string token) -> branch scalar (HMAC of the invoice number
// keyed on a shared reference point) -> derived key (root key offset by the
// branch scalar). See KeyDeriver for the per-operation contracts.
package wallet

import (
	"fmt"
	"strings"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
)

// SecurityLevel gates how widely a derived key is shared in a full wallet:
// per-app, per-app-and-counterparty, or unrestricted. The deriver treats it
// as an opaque component of the invoice number.
type SecurityLevel int

const (
	// SecurityLevelSilent allows key use without any permission grant.
	SecurityLevelSilent SecurityLevel = 0

	// SecurityLevelEveryApp scopes grants per application.
	SecurityLevelEveryApp SecurityLevel = 1

	// SecurityLevelEveryAppAndCounterparty scopes grants per application and
	// counterparty. Authentication handshakes derive at this level.
	SecurityLevelEveryAppAndCounterparty SecurityLevel = 2
)

// Protocol describes the derivation context: a security level and a
// protocol name.
type Protocol struct {
	SecurityLevel SecurityLevel
	Protocol      string
}

// CounterpartyType discriminates the closed set of counterparty variants.
type CounterpartyType int

const (
	// CounterpartyTypeUninitialized is the zero value and always rejected.
	CounterpartyTypeUninitialized CounterpartyType = iota

	// CounterpartyTypeSelf derives relative to the root's own identity.
	CounterpartyTypeSelf

	// CounterpartyTypeAnyone derives relative to the fixed "anyone" base
	// point shared by all conforming implementations.
	CounterpartyTypeAnyone

	// CounterpartyTypeOther derives relative to a specific remote identity.
	CounterpartyTypeOther
)

// Counterparty is a tagged union over Self / Anyone / Other(point).
type Counterparty struct {
	Type CounterpartyType

	// Counterparty holds the remote identity's public point when
	// Type == CounterpartyTypeOther; nil otherwise.
	Counterparty curve.Point
}

// CounterpartySelf returns the self counterparty.
func CounterpartySelf() Counterparty {
	return Counterparty{Type: CounterpartyTypeSelf}
}

// CounterpartyAnyone returns the anyone counterparty.
func CounterpartyAnyone() Counterparty {
	return Counterparty{Type: CounterpartyTypeAnyone}
}

// CounterpartyOther returns a counterparty bound to a remote identity point.
func CounterpartyOther(p curve.Point) Counterparty {
	return Counterparty{Type: CounterpartyTypeOther, Counterparty: p}
}

const (
	// MaxProtocolNameLength bounds protocol names in bytes.
	MaxProtocolNameLength = 400

	// MaxKeyIDLength bounds key identifiers in bytes.
	MaxKeyIDLength = 800
)

// BuildInvoiceNumber turns a protocol descriptor and key identifier into the
// canonical invoice number "{securityLevel}-{protocolName}-{keyID}".
//
// The token is the sole binding between a derivation and its context, so it
// must be identical across implementations for identical inputs and must
// differ whenever any input differs. Pure; no side effects.
func BuildInvoiceNumber(protocol Protocol, keyID string) (string, error) {
	if err := validateProtocol(protocol); err != nil {
		return "", err
	}
	if keyID == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKeyID)
	}
	if len(keyID) > MaxKeyIDLength {
		return "", fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrInvalidKeyID, len(keyID), MaxKeyIDLength)
	}

	return fmt.Sprintf("%d-%s-%s", protocol.SecurityLevel, protocol.Protocol, keyID), nil
}

// validateProtocol enforces the protocol naming rules: lowercase letters,
// digits and single interior spaces only, at most MaxProtocolNameLength
// bytes, and never the redundant " protocol" suffix.
func validateProtocol(protocol Protocol) error {
	switch protocol.SecurityLevel {
	case SecurityLevelSilent, SecurityLevelEveryApp, SecurityLevelEveryAppAndCounterparty:
	default:
		return fmt.Errorf("%w: security level %d out of range", ErrInvalidProtocol, protocol.SecurityLevel)
	}

	name := protocol.Protocol
	if name == "" {
		return fmt.Errorf("%w: empty protocol name", ErrInvalidProtocol)
	}
	if len(name) > MaxProtocolNameLength {
		return fmt.Errorf("%w: protocol name %d bytes exceeds maximum of %d", ErrInvalidProtocol, len(name), MaxProtocolNameLength)
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: protocol name has leading or trailing whitespace", ErrInvalidProtocol)
	}
	if strings.Contains(name, "  ") {
		return fmt.Errorf("%w: protocol name has consecutive spaces", ErrInvalidProtocol)
	}
	if strings.HasSuffix(name, " protocol") {
		return fmt.Errorf("%w: protocol name must not end with \" protocol\"", ErrInvalidProtocol)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != ' ' {
			return fmt.Errorf("%w: protocol name contains invalid character %q", ErrInvalidProtocol, r)
		}
	}

	return nil
}
