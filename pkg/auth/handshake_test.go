package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/storage"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/wallet"
)

func newTestPeer(t *testing.T) (*Peer, *storage.MemoryStore) {
	t.Helper()
	crv := curve.NewSecp256k1()

	root, err := wallet.GenerateRootKey(crv)
	if err != nil {
		t.Fatalf("failed to generate root key: %v", err)
	}

	store := storage.NewMemoryStore(time.Minute, time.Minute)
	t.Cleanup(func() { store.Close() })

	return NewPeer(root, store), store
}

func TestHandshake(t *testing.T) {
	initiator, _ := newTestPeer(t)
	responder, responderStore := newTestPeer(t)

	req, err := initiator.NewInitialRequest()
	if err != nil {
		t.Fatalf("failed to build initial request: %v", err)
	}
	if req.MessageType != MessageTypeInitialRequest {
		t.Errorf("message type = %q, want %q", req.MessageType, MessageTypeInitialRequest)
	}
	if _, err := DecodeNonce(req.InitialNonce); err != nil {
		t.Fatalf("initial nonce should decode: %v", err)
	}

	resp, err := responder.HandleInitialRequest(req)
	if err != nil {
		t.Fatalf("failed to handle initial request: %v", err)
	}
	if resp.MessageType != MessageTypeInitialResponse {
		t.Errorf("message type = %q, want %q", resp.MessageType, MessageTypeInitialResponse)
	}
	if resp.YourNonce != req.InitialNonce {
		t.Error("response should echo the initiator's nonce")
	}

	session, err := initiator.VerifyInitialResponse(req.InitialNonce, resp)
	if err != nil {
		t.Fatalf("failed to verify response: %v", err)
	}
	if !session.IsAuthenticated {
		t.Error("session should be authenticated after verification")
	}
	if session.PeerIdentityKey != responder.IdentityKeyHex() {
		t.Error("session should record the responder's identity")
	}

	// The responder holds the mirror session keyed by the initiator.
	responderSession, err := responderStore.GetSessionByIdentity(initiator.IdentityKeyHex())
	if err != nil {
		t.Fatalf("responder should hold a session for the initiator: %v", err)
	}
	if responderSession.SessionNonce != resp.InitialNonce {
		t.Error("responder session nonce should be the minted session nonce")
	}
	if responderSession.PeerNonce != req.InitialNonce {
		t.Error("responder peer nonce should be the initiator's nonce")
	}
}

func TestHandleInitialRequestRejections(t *testing.T) {
	responder, _ := newTestPeer(t)
	other, _ := newTestPeer(t)

	valid := func(t *testing.T) *AuthMessage {
		t.Helper()
		req, err := other.NewInitialRequest()
		if err != nil {
			t.Fatalf("failed to build initial request: %v", err)
		}
		return req
	}

	t.Run("WrongVersion", func(t *testing.T) {
		req := valid(t)
		req.Version = "0.2"
		if _, err := responder.HandleInitialRequest(req); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("error = %v, want %v", err, ErrUnsupportedVersion)
		}
	})

	t.Run("WrongMessageType", func(t *testing.T) {
		req := valid(t)
		req.MessageType = MessageTypeGeneral
		if _, err := responder.HandleInitialRequest(req); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("error = %v, want %v", err, ErrInvalidMessage)
		}
	})

	t.Run("BadNonce", func(t *testing.T) {
		req := valid(t)
		req.InitialNonce = "short"
		if _, err := responder.HandleInitialRequest(req); err == nil {
			t.Error("malformed nonce should be rejected")
		}
	})

	t.Run("BadIdentityKey", func(t *testing.T) {
		req := valid(t)
		req.IdentityKey = "zz"
		if _, err := responder.HandleInitialRequest(req); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("error = %v, want %v", err, ErrInvalidMessage)
		}
	})
}

func TestVerifyInitialResponseRejections(t *testing.T) {
	initiator, _ := newTestPeer(t)
	responder, _ := newTestPeer(t)

	req, err := initiator.NewInitialRequest()
	if err != nil {
		t.Fatalf("failed to build initial request: %v", err)
	}
	resp, err := responder.HandleInitialRequest(req)
	if err != nil {
		t.Fatalf("failed to handle initial request: %v", err)
	}

	t.Run("WrongEcho", func(t *testing.T) {
		bad := *resp
		bad.YourNonce = fixtureInitialNonce
		if _, err := initiator.VerifyInitialResponse(req.InitialNonce, &bad); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("error = %v, want %v", err, ErrInvalidMessage)
		}
	})

	t.Run("TamperedSignature", func(t *testing.T) {
		bad := *resp
		bad.Signature = resp.Signature[:len(resp.Signature)-4] + "AAA="
		if _, err := initiator.VerifyInitialResponse(req.InitialNonce, &bad); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("error = %v, want %v", err, ErrInvalidSignature)
		}
	})

	t.Run("SwappedIdentity", func(t *testing.T) {
		imposter, _ := newTestPeer(t)
		bad := *resp
		bad.IdentityKey = imposter.IdentityKeyHex()
		if _, err := initiator.VerifyInitialResponse(req.InitialNonce, &bad); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("error = %v, want %v", err, ErrInvalidSignature)
		}
	})

	t.Run("WrongVersion", func(t *testing.T) {
		bad := *resp
		bad.Version = "0.2"
		if _, err := initiator.VerifyInitialResponse(req.InitialNonce, &bad); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("error = %v, want %v", err, ErrUnsupportedVersion)
		}
	})
}

func TestMutualProof(t *testing.T) {
	initiator, _ := newTestPeer(t)
	responder, responderStore := newTestPeer(t)

	req, err := initiator.NewInitialRequest()
	if err != nil {
		t.Fatalf("failed to build initial request: %v", err)
	}
	resp, err := responder.HandleInitialRequest(req)
	if err != nil {
		t.Fatalf("failed to handle initial request: %v", err)
	}
	session, err := initiator.VerifyInitialResponse(req.InitialNonce, resp)
	if err != nil {
		t.Fatalf("failed to verify response: %v", err)
	}

	// The responder's session is pending until the initiator proves back.
	pending, err := responderStore.GetSessionByIdentity(initiator.IdentityKeyHex())
	if err != nil {
		t.Fatalf("responder should hold a pending session: %v", err)
	}
	if pending.IsAuthenticated {
		t.Error("responder session should not be authenticated yet")
	}

	proof, err := initiator.NewMutualProof(session)
	if err != nil {
		t.Fatalf("failed to build mutual proof: %v", err)
	}
	if err := responder.VerifyMutualProof(proof); err != nil {
		t.Fatalf("failed to verify mutual proof: %v", err)
	}

	authenticated, _ := responderStore.GetSessionByIdentity(initiator.IdentityKeyHex())
	if !authenticated.IsAuthenticated {
		t.Error("responder session should be authenticated after the proof")
	}

	t.Run("RejectsWrongNoncePair", func(t *testing.T) {
		bad := *proof
		bad.InitialNonce = fixtureInitialNonce
		if err := responder.VerifyMutualProof(&bad); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("error = %v, want %v", err, ErrInvalidMessage)
		}
	})

	t.Run("RejectsUnknownPeer", func(t *testing.T) {
		stranger, _ := newTestPeer(t)
		bad := *proof
		bad.IdentityKey = stranger.IdentityKeyHex()
		if err := responder.VerifyMutualProof(&bad); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("error = %v, want %v", err, ErrInvalidMessage)
		}
	})

	t.Run("RejectsTamperedSignature", func(t *testing.T) {
		bad := *proof
		bad.Signature = proof.Signature[:len(proof.Signature)-4] + "AAA="
		if err := responder.VerifyMutualProof(&bad); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("error = %v, want %v", err, ErrInvalidSignature)
		}
	})
}

func TestGeneralMessages(t *testing.T) {
	initiator, _ := newTestPeer(t)
	responder, _ := newTestPeer(t)

	req, err := initiator.NewInitialRequest()
	if err != nil {
		t.Fatalf("failed to build initial request: %v", err)
	}
	resp, err := responder.HandleInitialRequest(req)
	if err != nil {
		t.Fatalf("failed to handle initial request: %v", err)
	}
	session, err := initiator.VerifyInitialResponse(req.InitialNonce, resp)
	if err != nil {
		t.Fatalf("failed to verify response: %v", err)
	}

	body := []byte(`{"n":1}`)

	t.Run("SignAndVerify", func(t *testing.T) {
		msg, err := initiator.SignRequest(session, "req-1", "POST", "/api/thing", body)
		if err != nil {
			t.Fatalf("failed to sign request: %v", err)
		}
		if msg.YourNonce != session.PeerNonce {
			t.Error("general message should echo the peer's session nonce")
		}

		if err := responder.VerifyGeneral(msg, "POST", "/api/thing", body); err != nil {
			t.Errorf("verification failed: %v", err)
		}
	})

	t.Run("FreshNoncePerMessage", func(t *testing.T) {
		a, _ := initiator.SignRequest(session, "req-2", "GET", "/api/thing", nil)
		b, _ := initiator.SignRequest(session, "req-3", "GET", "/api/thing", nil)
		if a.Nonce == b.Nonce {
			t.Error("each message should carry a fresh nonce")
		}
	})

	t.Run("RejectsTampering", func(t *testing.T) {
		msg, err := initiator.SignRequest(session, "req-4", "POST", "/api/thing", body)
		if err != nil {
			t.Fatalf("failed to sign request: %v", err)
		}

		cases := []struct {
			name         string
			method, path string
			body         []byte
		}{
			{"Body", "POST", "/api/thing", []byte(`{"n":2}`)},
			{"Method", "PUT", "/api/thing", body},
			{"Path", "POST", "/api/other", body},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if err := responder.VerifyGeneral(msg, tc.method, tc.path, tc.body); !errors.Is(err, ErrInvalidSignature) {
					t.Errorf("error = %v, want %v", err, ErrInvalidSignature)
				}
			})
		}

		t.Run("RequestID", func(t *testing.T) {
			bad := *msg
			bad.RequestID = "req-5"
			if err := responder.VerifyGeneral(&bad, "POST", "/api/thing", body); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("error = %v, want %v", err, ErrInvalidSignature)
			}
		})
	})
}
