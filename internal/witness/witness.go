// Package witness calls an external time-stamping authority to attest
// that a chain hash existed at a point in time. The attestation is stored
// as record metadata only: it never enters the chain's hash input, and
// this core does not verify the authority's signature. Treat it as
// supplementary evidence, not as part of the ledger's integrity guarantee.
package witness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected indicates the authority answered but refused to attest.
var ErrRejected = errors.New("timestamp authority rejected the request")

const maxResponseBytes = 64 << 10

// Attestation is a timestamp authority's answer for one hash.
type Attestation struct {
	TSAID       string `json:"tsa_id"`
	VerifiedUTC string `json:"verified_utc"`
	Signature   string `json:"tsa_signature"`
}

// Client talks to one timestamp authority endpoint.
type Client struct {
	url    string
	client *http.Client
}

// NewClient returns a witness client for the given authority URL.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Attest submits blockHash to the authority and returns its attestation.
// Failure modes are distinct: transport errors surface as-is, a non-2xx
// answer is ErrRejected, and an unparseable body is a decode error.
func (c *Client) Attest(ctx context.Context, blockHash string) (*Attestation, error) {
	body, err := json.Marshal(map[string]string{"hash": blockHash})
	if err != nil {
		return nil, fmt.Errorf("encoding witness request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building witness request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling timestamp authority: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading authority response: %w", err)
	}

	var att Attestation
	if err := json.Unmarshal(data, &att); err != nil {
		return nil, fmt.Errorf("parsing authority response: %w", err)
	}
	if att.TSAID == "" || att.Signature == "" {
		return nil, fmt.Errorf("parsing authority response: incomplete attestation")
	}
	return &att, nil
}

// Meta renders the attestation as record metadata entries.
func (a *Attestation) Meta() map[string]any {
	return map[string]any{
		"witness_tsa_id":    a.TSAID,
		"witness_utc":       a.VerifiedUTC,
		"witness_signature": a.Signature,
	}
}
