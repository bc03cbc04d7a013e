// Package verifier re-derives every hash and signature in a persisted
// chain (or a finalized report) from raw stored fields and compares them
// against the stored values. It is strictly read-only: a broken chain is
// reported, never repaired.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aeterna/aeterna/internal/crypto"
	"github.com/aeterna/aeterna/internal/report"
	"github.com/aeterna/aeterna/internal/vault"
)

// ErrNoCompanionPayload is returned when a report artifact's
// machine-checkable JSON payload cannot be found.
var ErrNoCompanionPayload = errors.New("missing companion report payload")

// Outcome is the terminal state of a chain walk.
type Outcome string

const (
	// ChainIntact: every link, hash, and signature re-derived identically.
	ChainIntact Outcome = "CHAIN_INTACT"
	// ChainBroken: at least one record failed re-derivation.
	ChainBroken Outcome = "CHAIN_BROKEN"
	// EmptyStore: nothing to attest. Deliberately distinct from intact —
	// vacuous success is not attested success.
	EmptyStore Outcome = "EMPTY_STORE"
)

// FindingKind classifies a verification failure.
type FindingKind string

const (
	ChainLinkMismatch   FindingKind = "CHAIN_LINK_MISMATCH"
	ContentHashMismatch FindingKind = "CONTENT_HASH_MISMATCH"
	SignatureMismatch   FindingKind = "SIGNATURE_MISMATCH"
)

// Finding localizes one verification failure to a record.
type Finding struct {
	Sequence int64       `json:"sequence"`
	Kind     FindingKind `json:"kind"`
	Reason   string      `json:"reason"`
}

// ChainResult is the outcome of walking a full store.
//
// Verification continues past the first break for diagnostics, but the
// primary verdict (Outcome, First) always reflects the first failure.
type ChainResult struct {
	Outcome  Outcome   `json:"outcome"`
	Checked  int       `json:"checked"`
	Findings []Finding `json:"findings,omitempty"`
}

// First returns the finding at which trust ends, or nil when intact.
func (r *ChainResult) First() *Finding {
	if len(r.Findings) == 0 {
		return nil
	}
	return &r.Findings[0]
}

// RecordSource is the read access the chain walk needs.
type RecordSource interface {
	AllRecords(ctx context.Context) ([]vault.Record, error)
}

// Records adapts an already-read snapshot to a RecordSource. Callers
// that both display and verify the store read it once and hand the same
// snapshot to Chain, so the verdict matches what was shown.
type Records []vault.Record

// AllRecords returns the snapshot unchanged.
func (r Records) AllRecords(context.Context) ([]vault.Record, error) {
	return r, nil
}

// Chain walks every record in sequence order and re-derives its chain
// link, content hash, and signature from the stored raw fields.
func Chain(ctx context.Context, src RecordSource, signer *crypto.Signer) (*ChainResult, error) {
	records, err := src.AllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if len(records) == 0 {
		return &ChainResult{Outcome: EmptyStore}, nil
	}

	result := &ChainResult{Outcome: ChainIntact, Checked: len(records)}
	expected := crypto.Genesis

	for _, rec := range records {
		if rec.PreviousHash != expected {
			result.Findings = append(result.Findings, Finding{
				Sequence: rec.Sequence,
				Kind:     ChainLinkMismatch,
				Reason:   "previous_hash does not match the preceding record's current_hash",
			})
		}

		// Recompute from the record's own stored fields, including its
		// stored previous_hash, so content tampering is localized to the
		// record that was actually changed.
		recomputed := crypto.HashString(rec.SessionID + rec.Timestamp + rec.EventType + rec.Payload + rec.PreviousHash)
		if recomputed != rec.CurrentHash {
			result.Findings = append(result.Findings, Finding{
				Sequence: rec.Sequence,
				Kind:     ContentHashMismatch,
				Reason:   "stored current_hash does not match hash recomputed from stored fields",
			})
		} else if !signer.Verify(recomputed, rec.Signature) {
			// Only meaningful when the content hash held: a content
			// mismatch would fail the signature derivatively.
			result.Findings = append(result.Findings, Finding{
				Sequence: rec.Sequence,
				Kind:     SignatureMismatch,
				Reason:   "stored signature does not match HMAC over the recomputed hash",
			})
		}

		expected = recomputed
	}

	if len(result.Findings) > 0 {
		result.Outcome = ChainBroken
	}
	return result, nil
}

// ReportResult is the outcome of re-deriving a finalized report's hash
// and signature. A report is not chained, so there is no link check.
type ReportResult struct {
	HashOK      bool `json:"hash_ok"`
	SignatureOK bool `json:"signature_ok"`
}

// Valid reports whether both derivations matched.
func (r ReportResult) Valid() bool { return r.HashOK && r.SignatureOK }

// Report recomputes a finalized report's hash over its canonical fields
// and the signature over that recomputed hash.
func Report(f *report.Finalized, signer *crypto.Signer) (ReportResult, error) {
	b, err := f.CanonicalBytes()
	if err != nil {
		return ReportResult{}, fmt.Errorf("canonicalizing report: %w", err)
	}
	computed := crypto.Hash(b)
	return ReportResult{
		HashOK:      computed == f.ReportHash,
		SignatureOK: signer.Verify(computed, f.ReportSignature),
	}, nil
}

// ReportFile loads a report artifact from disk and verifies it. A missing
// payload is ErrNoCompanionPayload, distinct from a tamper finding.
func ReportFile(path string, signer *crypto.Signer) (ReportResult, error) {
	f, err := report.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ReportResult{}, fmt.Errorf("%w: %s", ErrNoCompanionPayload, path)
		}
		return ReportResult{}, err
	}
	return Report(f, signer)
}
