// Package randomness talks to the external verifiable-randomness oracle:
// submitting requests and verifying the ed25519-signed callbacks they
// eventually produce. Nothing in this package persists state — that is
// ResolutionService's job, one layer up.
package randomness

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/domain"
)

// HTTPOracle submits randomness requests to the configured oracle base URL
// and verifies the signature on its callbacks.
type HTTPOracle struct {
	client    *http.Client
	baseURL   string
	publicKey ed25519.PublicKey
}

// NewHTTPOracle builds an HTTPOracle from configuration. An empty
// OraclePublicKey is accepted so the zero-config development path still
// starts up; Config.Validate already refuses this in production.
func NewHTTPOracle(cfg *config.Config) (*HTTPOracle, error) {
	var pub ed25519.PublicKey
	if cfg.Randomness.OraclePublicKey != "" {
		raw, err := hex.DecodeString(cfg.Randomness.OraclePublicKey)
		if err != nil {
			return nil, fmt.Errorf("randomness.NewHTTPOracle: decode public key: %w", err)
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("randomness.NewHTTPOracle: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		pub = ed25519.PublicKey(raw)
	}

	return &HTTPOracle{
		client:    &http.Client{Timeout: cfg.Randomness.RequestTimeout},
		baseURL:   cfg.Randomness.OracleBaseURL,
		publicKey: pub,
	}, nil
}

// requestBody is the payload posted to the oracle to open a new request.
type requestBody struct {
	RequestID string `json:"request_id"`
	UseCase   string `json:"use_case"`
}

// RequestRandomness submits a new randomness request to the oracle,
// satisfying service.RandomnessRequester.
func (o *HTTPOracle) RequestRandomness(ctx context.Context, requestID string, useCase domain.RandomnessUseCase) error {
	body, err := json.Marshal(requestBody{RequestID: requestID, UseCase: string(useCase)})
	if err != nil {
		return fmt.Errorf("randomness.RequestRandomness: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/randomness/requests", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("randomness.RequestRandomness: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("randomness.RequestRandomness: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("randomness.RequestRandomness: unexpected status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// CallbackPayload is the body the oracle posts once a request's seed is
// ready: a hex-encoded 32-byte seed and an ed25519 signature over
// request_id || seed.
type CallbackPayload struct {
	RequestID string `json:"request_id"`
	Seed      string `json:"seed"`
	Signature string `json:"signature"`
}

// VerifyCallback checks p's signature against the oracle's registered
// public key and returns the decoded seed on success.
func (o *HTTPOracle) VerifyCallback(p CallbackPayload) ([32]byte, error) {
	var seed [32]byte

	seedBytes, err := hex.DecodeString(p.Seed)
	if err != nil || len(seedBytes) != len(seed) {
		return seed, fmt.Errorf("randomness.VerifyCallback: seed must be %d hex-encoded bytes", len(seed))
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil {
		return seed, fmt.Errorf("randomness.VerifyCallback: decode signature: %w", err)
	}

	msg := append([]byte(p.RequestID), seedBytes...)
	if !ed25519.Verify(o.publicKey, msg, sig) {
		return seed, domain.ErrOracleUnauthorized
	}

	copy(seed[:], seedBytes)
	return seed, nil
}
