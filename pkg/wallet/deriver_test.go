package wallet

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
)

// Known-good WIF used across conforming implementations' fixtures.
const testWIF = "L4B2postXdaP7TiUrUBYs53Fqzheu7WhSoQVPuY8qBdoBeEwbmZx"

var testProtocol = Protocol{
	SecurityLevel: SecurityLevelEveryAppAndCounterparty,
	Protocol:      "auth message signature",
}

func newTestPair(t *testing.T) (*RootKey, *RootKey) {
	t.Helper()
	crv := curve.NewSecp256k1()

	alice, err := GenerateRootKey(crv)
	if err != nil {
		t.Fatalf("failed to generate root key: %v", err)
	}
	bob, err := GenerateRootKey(crv)
	if err != nil {
		t.Fatalf("failed to generate root key: %v", err)
	}
	return alice, bob
}

func TestRootKeyFromWIF(t *testing.T) {
	crv := curve.NewSecp256k1()

	root, err := RootKeyFromWIF(crv, testWIF)
	if err != nil {
		t.Fatalf("failed to decode wif: %v", err)
	}
	if len(root.PublicKeyHex()) != 66 {
		t.Errorf("identity key hex length = %d, want 66", len(root.PublicKeyHex()))
	}

	t.Run("RejectsGarbage", func(t *testing.T) {
		if _, err := RootKeyFromWIF(crv, "not a wif"); err == nil {
			t.Error("malformed wif should be rejected")
		}
	})
}

func TestDerivePrivateKey(t *testing.T) {
	alice, bob := newTestPair(t)
	deriver := NewKeyDeriver(alice)

	t.Run("Deterministic", func(t *testing.T) {
		a, err := deriver.DerivePrivateKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if err != nil {
			t.Fatalf("failed to derive private key: %v", err)
		}
		b, err := deriver.DerivePrivateKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if err != nil {
			t.Fatalf("failed to derive private key: %v", err)
		}
		if a.BigInt().Cmp(b.BigInt()) != 0 {
			t.Error("same context should derive the same key")
		}
	})

	t.Run("KeyIDChangesKey", func(t *testing.T) {
		a, _ := deriver.DerivePrivateKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		b, _ := deriver.DerivePrivateKey(testProtocol, "2", CounterpartyOther(bob.PublicKey()))
		if a.BigInt().Cmp(b.BigInt()) == 0 {
			t.Error("different key ids should derive different keys")
		}
	})

	t.Run("RejectsSelf", func(t *testing.T) {
		_, err := deriver.DerivePrivateKey(testProtocol, "1", CounterpartySelf())
		if !errors.Is(err, ErrInvalidCounterpartyForPrivateDerivation) {
			t.Errorf("error = %v, want %v", err, ErrInvalidCounterpartyForPrivateDerivation)
		}
	})

	t.Run("RejectsUninitialized", func(t *testing.T) {
		_, err := deriver.DerivePrivateKey(testProtocol, "1", Counterparty{})
		if !errors.Is(err, ErrInvalidCounterparty) {
			t.Errorf("error = %v, want %v", err, ErrInvalidCounterparty)
		}
	})

	t.Run("RejectsMissingOtherPoint", func(t *testing.T) {
		_, err := deriver.DerivePrivateKey(testProtocol, "1", CounterpartyOther(nil))
		if !errors.Is(err, ErrInvalidCounterparty) {
			t.Errorf("error = %v, want %v", err, ErrInvalidCounterparty)
		}
	})
}

func TestDeriveOwnPublicKey(t *testing.T) {
	alice, bob := newTestPair(t)
	crv := curve.NewSecp256k1()
	deriver := NewKeyDeriver(alice)

	t.Run("MatchesPrivateKey", func(t *testing.T) {
		priv, err := deriver.DerivePrivateKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if err != nil {
			t.Fatalf("failed to derive private key: %v", err)
		}
		pub, err := deriver.DeriveOwnPublicKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if err != nil {
			t.Fatalf("failed to derive public key: %v", err)
		}

		if !pub.Equal(crv.ScalarBaseMult(priv)) {
			t.Error("own public key should be G times the derived private key")
		}
	})

	t.Run("DiffersFromCounterpartyKey", func(t *testing.T) {
		own, _ := deriver.DeriveOwnPublicKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		theirs, _ := deriver.DeriveCounterpartyPublicKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if own.Equal(theirs) {
			t.Error("own and counterparty keys for the same context must differ")
		}
	})

	t.Run("RejectsSelf", func(t *testing.T) {
		_, err := deriver.DeriveOwnPublicKey(testProtocol, "1", CounterpartySelf())
		if !errors.Is(err, ErrInvalidCounterpartyForPrivateDerivation) {
			t.Errorf("error = %v, want %v", err, ErrInvalidCounterpartyForPrivateDerivation)
		}
	})
}

// TestDerivationKnownAnswer pins the full derivation for the fixed fixtures
// shared with other conforming implementations. The expectations are
// rebuilt here from primitives only, with the domain tag and invoice format
// spelled out as literals, so any silent change to the invoice composition,
// the HMAC keying, or the scalar arithmetic shows up as a byte-level
// mismatch.
func TestDerivationKnownAnswer(t *testing.T) {
	const (
		counterpartyHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
		keyID           = "QUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUE= QkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkI="
	)

	n := btcec.S256().N
	compress := func(t *testing.T, x, y *big.Int) []byte {
		t.Helper()
		enc := append([]byte{0x04},
			append(x.FillBytes(make([]byte, 32)), y.FillBytes(make([]byte, 32))...)...)
		pub, err := btcec.ParsePubKey(enc)
		if err != nil {
			t.Fatalf("failed to rebuild point: %v", err)
		}
		return pub.SerializeCompressed()
	}

	// Root scalar straight from the WIF.
	wif, err := btcutil.DecodeWIF(testWIF)
	if err != nil {
		t.Fatalf("failed to decode wif: %v", err)
	}
	d := new(big.Int).SetBytes(wif.PrivKey.Serialize())

	// Shared reference point d*Q, compressed.
	qBytes, _ := hex.DecodeString(counterpartyHex)
	qPub, err := btcec.ParsePubKey(qBytes)
	if err != nil {
		t.Fatalf("failed to parse counterparty key: %v", err)
	}
	sx, sy := btcec.S256().ScalarMult(qPub.X(), qPub.Y(), d.FillBytes(make([]byte, 32)))
	shared := compress(t, sx, sy)

	// Branch scalar with the literal domain tag and invoice layout.
	mac := hmac.New(sha256.New, shared)
	mac.Write([]byte("brc42/1/branch"))
	mac.Write([]byte("2-auth message signature-" + keyID))
	branch := new(big.Int).SetBytes(mac.Sum(nil))
	branch.Mod(branch, n)

	wantPriv := new(big.Int).Add(d, branch)
	wantPriv.Mod(wantPriv, n)

	crv := curve.NewSecp256k1()
	root, err := RootKeyFromWIF(crv, testWIF)
	if err != nil {
		t.Fatalf("failed to load root key: %v", err)
	}
	deriver := NewKeyDeriver(root)
	counterpartyPoint, err := PublicKeyFromHex(crv, counterpartyHex)
	if err != nil {
		t.Fatalf("failed to parse counterparty hex: %v", err)
	}
	counterparty := CounterpartyOther(counterpartyPoint)

	t.Run("PrivateKey", func(t *testing.T) {
		got, err := deriver.DerivePrivateKey(testProtocol, keyID, counterparty)
		if err != nil {
			t.Fatalf("failed to derive private key: %v", err)
		}
		if !bytes.Equal(got.Bytes(), wantPriv.FillBytes(make([]byte, 32))) {
			t.Errorf("derived private key = %x, want %x", got.Bytes(), wantPriv.Bytes())
		}
	})

	t.Run("OwnPublicKey", func(t *testing.T) {
		_, wantPub := btcec.PrivKeyFromBytes(wantPriv.FillBytes(make([]byte, 32)))

		got, err := deriver.DeriveOwnPublicKey(testProtocol, keyID, counterparty)
		if err != nil {
			t.Fatalf("failed to derive own public key: %v", err)
		}
		if !bytes.Equal(got.Bytes(), wantPub.SerializeCompressed()) {
			t.Errorf("own public key = %x, want %x", got.Bytes(), wantPub.SerializeCompressed())
		}
	})

	t.Run("CounterpartyPublicKey", func(t *testing.T) {
		bx, by := btcec.S256().ScalarBaseMult(branch.FillBytes(make([]byte, 32)))
		cx, cy := btcec.S256().Add(qPub.X(), qPub.Y(), bx, by)
		want := compress(t, cx, cy)

		got, err := deriver.DeriveCounterpartyPublicKey(testProtocol, keyID, counterparty)
		if err != nil {
			t.Fatalf("failed to derive counterparty public key: %v", err)
		}
		if !bytes.Equal(got.Bytes(), want) {
			t.Errorf("counterparty public key = %x, want %x", got.Bytes(), want)
		}
	})
}

func TestDeriveCounterpartyPublicKey(t *testing.T) {
	alice, bob := newTestPair(t)
	aliceDeriver := NewKeyDeriver(alice)
	bobDeriver := NewKeyDeriver(bob)

	// The two-party agreement: the key Alice computes for Bob must be
	// bit-for-bit the key Bob derives for himself with Alice as
	// counterparty, and symmetrically.
	t.Run("MirrorsOwnDerivation", func(t *testing.T) {
		bobFromAlice, err := aliceDeriver.DeriveCounterpartyPublicKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if err != nil {
			t.Fatalf("failed to derive counterparty key: %v", err)
		}
		bobOwn, err := bobDeriver.DeriveOwnPublicKey(testProtocol, "1", CounterpartyOther(alice.PublicKey()))
		if err != nil {
			t.Fatalf("failed to derive own key: %v", err)
		}
		if !bytes.Equal(bobFromAlice.Bytes(), bobOwn.Bytes()) {
			t.Error("Alice's view of Bob's key should match Bob's own derivation")
		}

		aliceFromBob, _ := bobDeriver.DeriveCounterpartyPublicKey(testProtocol, "1", CounterpartyOther(alice.PublicKey()))
		aliceOwn, _ := aliceDeriver.DeriveOwnPublicKey(testProtocol, "1", CounterpartyOther(bob.PublicKey()))
		if !bytes.Equal(aliceFromBob.Bytes(), aliceOwn.Bytes()) {
			t.Error("Bob's view of Alice's key should match Alice's own derivation")
		}
	})

	t.Run("AnyoneEqualsGenerator", func(t *testing.T) {
		crv := curve.NewSecp256k1()

		viaAnyone, err := aliceDeriver.DeriveCounterpartyPublicKey(testProtocol, "1", CounterpartyAnyone())
		if err != nil {
			t.Fatalf("failed to derive with anyone: %v", err)
		}
		viaPoint, err := aliceDeriver.DeriveCounterpartyPublicKey(testProtocol, "1", CounterpartyOther(crv.Generator()))
		if err != nil {
			t.Fatalf("failed to derive with explicit generator: %v", err)
		}
		if !viaAnyone.Equal(viaPoint) {
			t.Error("anyone counterparty should resolve to the generator")
		}
	})

	t.Run("RejectsSelf", func(t *testing.T) {
		_, err := aliceDeriver.DeriveCounterpartyPublicKey(testProtocol, "1", CounterpartySelf())
		if !errors.Is(err, ErrInvalidCounterparty) {
			t.Errorf("error = %v, want %v", err, ErrInvalidCounterparty)
		}
	})
}
