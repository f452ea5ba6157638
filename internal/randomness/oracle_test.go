package randomness_test

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/randomness"
)

func buildOracleConfig(baseURL, pubKeyHex string) *config.Config {
	return &config.Config{
		Randomness: config.RandomnessConfig{
			OracleBaseURL:   baseURL,
			OraclePublicKey: pubKeyHex,
			RequestTimeout:  3 * time.Second,
		},
	}
}

// TestHTTPOracle_RequestRandomness_Accepted confirms a 202 response from the
// oracle is treated as success.
func TestHTTPOracle_RequestRandomness_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/randomness/requests" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	oracle, err := randomness.NewHTTPOracle(buildOracleConfig(srv.URL, ""))
	if err != nil {
		t.Fatalf("NewHTTPOracle: %v", err)
	}

	if err := oracle.RequestRandomness(context.Background(), "req-1", domain.UseCaseOutcomeSeeding); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

// TestHTTPOracle_RequestRandomness_ServerError confirms a non-2xx response
// surfaces as an error.
func TestHTTPOracle_RequestRandomness_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	oracle, err := randomness.NewHTTPOracle(buildOracleConfig(srv.URL, ""))
	if err != nil {
		t.Fatalf("NewHTTPOracle: %v", err)
	}

	if err := oracle.RequestRandomness(context.Background(), "req-1", domain.UseCaseOutcomeSeeding); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

// TestHTTPOracle_VerifyCallback_Valid confirms a correctly signed callback
// verifies and returns the decoded seed.
func TestHTTPOracle_VerifyCallback_Valid(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	oracle, err := randomness.NewHTTPOracle(buildOracleConfig("", hex.EncodeToString(pub)))
	if err != nil {
		t.Fatalf("NewHTTPOracle: %v", err)
	}

	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	requestID := "req-42"
	msg := append([]byte(requestID), seed[:]...)
	sig := ed25519.Sign(priv, msg)

	payload := randomness.CallbackPayload{
		RequestID: requestID,
		Seed:      hex.EncodeToString(seed[:]),
		Signature: hex.EncodeToString(sig),
	}

	got, err := oracle.VerifyCallback(payload)
	if err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}
	if got != seed {
		t.Errorf("decoded seed mismatch: got %x, want %x", got, seed)
	}
}

// TestHTTPOracle_VerifyCallback_WrongSigner confirms a signature from a key
// other than the registered oracle key is rejected.
func TestHTTPOracle_VerifyCallback_WrongSigner(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, otherPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	oracle, err := randomness.NewHTTPOracle(buildOracleConfig("", hex.EncodeToString(pub)))
	if err != nil {
		t.Fatalf("NewHTTPOracle: %v", err)
	}

	var seed [32]byte
	requestID := "req-99"
	msg := append([]byte(requestID), seed[:]...)
	sig := ed25519.Sign(otherPriv, msg)

	payload := randomness.CallbackPayload{
		RequestID: requestID,
		Seed:      hex.EncodeToString(seed[:]),
		Signature: hex.EncodeToString(sig),
	}

	if _, err := oracle.VerifyCallback(payload); err != domain.ErrOracleUnauthorized {
		t.Errorf("expected ErrOracleUnauthorized, got: %v", err)
	}
}
