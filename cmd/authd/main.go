package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/F1r3Hydr4nt/brc104-go/pkg/auth"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/crypto/curve"
	mw "github.com/F1r3Hydr4nt/brc104-go/pkg/middleware"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/storage"
	"github.com/F1r3Hydr4nt/brc104-go/pkg/wallet"
)

func main() {
	// Command line flags
	var (
		addr       = flag.String("addr", ":8080", "Server address")
		wif        = flag.String("wif", "", "Identity private key in WIF (generated if empty)")
		sessionTTL = flag.Duration("session-ttl", 10*time.Minute, "Peer session TTL")
		replayTTL  = flag.Duration("replay-ttl", 5*time.Minute, "Nonce replay window TTL")
		rateLimit  = flag.Int("rate-limit", 120, "Max requests per minute per client")
	)
	flag.Parse()

	log.Println("Starting auth server...")

	crv := curve.NewSecp256k1()
	log.Printf("Using curve: %s", crv.Name())

	// Load or generate the root identity key
	var (
		root *wallet.RootKey
		err  error
	)
	if *wif != "" {
		root, err = wallet.RootKeyFromWIF(crv, *wif)
		if err != nil {
			log.Fatalf("Failed to load identity key: %v", err)
		}
		log.Println("Loaded identity key from WIF")
	} else {
		root, err = wallet.GenerateRootKey(crv)
		if err != nil {
			log.Fatalf("Failed to generate identity key: %v", err)
		}
		log.Println("Generated ephemeral identity key")
	}
	log.Printf("Identity key: %s", root.PublicKeyHex())
	log.Printf("Rate limit: %d requests/minute per client", *rateLimit)

	// Initialize storage (in-memory for demo)
	store := storage.NewMemoryStore(*sessionTTL, *replayTTL)
	defer store.Close()
	log.Printf("Initialized in-memory storage (session TTL %v, replay TTL %v)", *sessionTTL, *replayTTL)

	// Create the handshake peer and handlers
	peer := auth.NewPeer(root, store)
	handlers := auth.NewHandlers(peer)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(mw.RateLimit(*rateLimit, time.Minute))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","service":"authd"}`)
	})

	// Handshake endpoint
	r.Post(auth.WellKnownAuthPath, handlers.Handshake)

	// Protected routes (require a completed handshake and a valid
	// general-message signature on every request)
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Auth(peer, store))
		// After Auth the limiter keys on the verified peer identity.
		r.Use(mw.RateLimit(*rateLimit, time.Minute))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			identity, _ := mw.GetPeerIdentity(r)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"message":"pong","peer":%q}`, identity)
		})

		r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			identity, _ := mw.GetPeerIdentity(r)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"identityKey":%q}`, identity)
		})
	})

	// Admin routes (no auth for demo)
	r.Get("/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := store.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"sessions":%d,"nonces":%d}`, stats["sessions"], stats["nonces"])
	})

	// Start server
	log.Printf("Server starting on %s", *addr)
	log.Println()
	log.Println("Endpoints:")
	log.Println("  POST /.well-known/auth - Mutual auth handshake")
	log.Println("  GET  /api/ping         - Authenticated ping")
	log.Println("  GET  /api/whoami       - Authenticated identity echo")
	log.Println("  GET  /health           - Health check")
	log.Println("  GET  /admin/stats      - Storage stats")
	log.Println()

	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
