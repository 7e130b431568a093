// Command demo runs a self-contained two-party walkthrough: key derivation
// from both sides, the mutual-auth handshake, and an authenticated general
// message, all in one process with no network.
package main

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/auth"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/storage"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/wallet"
)

func main() {
	crv := curve.NewSecp256k1()

	alice, err := wallet.GenerateRootKey(crv)
	if err != nil {
		log.Fatalf("Failed to generate Alice's root key: %v", err)
	}
	bob, err := wallet.GenerateRootKey(crv)
	if err != nil {
		log.Fatalf("Failed to generate Bob's root key: %v", err)
	}

	fmt.Println("=== Identities ===")
	fmt.Printf("Alice: %s\n", alice.PublicKeyHex())
	fmt.Printf("Bob:   %s\n", bob.PublicKeyHex())
	fmt.Println()

	demoMirrorDerivation(alice, bob)
	demoHandshake(alice, bob)
}

// demoMirrorDerivation shows the two-party agreement: the public key Alice
// computes for Bob equals the public key Bob derives for himself, and vice
// versa, without either side revealing a private key.
func demoMirrorDerivation(alice, bob *wallet.RootKey) {
	fmt.Println("=== Mirror derivation ===")

	protocol := wallet.Protocol{
		SecurityLevel: wallet.SecurityLevelEveryAppAndCounterparty,
		Protocol:      "demo messaging",
	}
	const keyID = "conversation 1"

	aliceDeriver := wallet.NewKeyDeriver(alice)
	bobDeriver := wallet.NewKeyDeriver(bob)

	// Alice predicts Bob's key for this context.
	bobFromAlice, err := aliceDeriver.DeriveCounterpartyPublicKey(protocol, keyID, wallet.CounterpartyOther(bob.PublicKey()))
	if err != nil {
		log.Fatalf("Derivation failed: %v", err)
	}

	// Bob derives his own key for the same context, with Alice as
	// counterparty.
	bobOwn, err := bobDeriver.DeriveOwnPublicKey(protocol, keyID, wallet.CounterpartyOther(alice.PublicKey()))
	if err != nil {
		log.Fatalf("Derivation failed: %v", err)
	}

	fmt.Printf("Bob's key, from Alice's side: %x\n", bobFromAlice.Bytes())
	fmt.Printf("Bob's key, from Bob's side:   %x\n", bobOwn.Bytes())
	if !bytes.Equal(bobFromAlice.Bytes(), bobOwn.Bytes()) {
		log.Fatal("Mirror derivation mismatch")
	}
	fmt.Println("Keys agree.")
	fmt.Println()
}

// demoHandshake runs the full handshake and one authenticated message with
// both peers in-process.
func demoHandshake(aliceRoot, bobRoot *wallet.RootKey) {
	fmt.Println("=== Handshake ===")

	aliceStore := storage.NewMemoryStore(10*time.Minute, 5*time.Minute)
	defer aliceStore.Close()
	bobStore := storage.NewMemoryStore(10*time.Minute, 5*time.Minute)
	defer bobStore.Close()

	alice := auth.NewPeer(aliceRoot, aliceStore)
	bob := auth.NewPeer(bobRoot, bobStore)

	// Alice opens the handshake.
	req, err := alice.NewInitialRequest()
	if err != nil {
		log.Fatalf("Initial request failed: %v", err)
	}
	fmt.Printf("Alice -> Bob: initialRequest, nonce %s\n", req.InitialNonce)

	// Bob answers with a signed response.
	resp, err := bob.HandleInitialRequest(req)
	if err != nil {
		log.Fatalf("Handshake handling failed: %v", err)
	}
	fmt.Printf("Bob -> Alice: initialResponse, session nonce %s\n", resp.InitialNonce)

	// Alice verifies Bob's signature and records the session.
	session, err := alice.VerifyInitialResponse(req.InitialNonce, resp)
	if err != nil {
		log.Fatalf("Response verification failed: %v", err)
	}
	fmt.Printf("Alice verified Bob's identity: %s\n", session.PeerIdentityKey)

	// Alice proves back; only now has Bob authenticated Alice.
	proof, err := alice.NewMutualProof(session)
	if err != nil {
		log.Fatalf("Mutual proof failed: %v", err)
	}
	if err := bob.VerifyMutualProof(proof); err != nil {
		log.Fatalf("Mutual proof verification failed: %v", err)
	}
	fmt.Println("Bob verified Alice's identity. Handshake is mutual.")
	fmt.Println()

	// Alice sends an authenticated message over the session.
	fmt.Println("=== Authenticated message ===")

	requestID := uuid.NewString()
	body := []byte(`{"hello":"bob"}`)
	msg, err := alice.SignRequest(session, requestID, "POST", "/api/message", body)
	if err != nil {
		log.Fatalf("Signing failed: %v", err)
	}
	fmt.Printf("Alice -> Bob: general message, request id %s\n", requestID)

	// Bob verifies it against his own session state.
	bobSession, err := bobStore.GetSessionByIdentity(msg.IdentityKey)
	if err != nil {
		log.Fatalf("Bob has no session for Alice: %v", err)
	}
	if msg.YourNonce != bobSession.SessionNonce {
		log.Fatal("Session nonce mismatch")
	}
	if err := bob.VerifyGeneral(msg, "POST", "/api/message", body); err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Println("Bob verified Alice's message.")

	// A tampered body must fail.
	if err := bob.VerifyGeneral(msg, "POST", "/api/message", []byte(`{"hello":"eve"}`)); err == nil {
		log.Fatal("Tampered body was accepted")
	}
	fmt.Println("Tampered body rejected.")
}
