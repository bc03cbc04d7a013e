// Package engine is the per-session facade over the ledger: it computes
// chain links, persists records, and produces the finalized session report.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aeterna/aeterna/internal/canonical"
	"github.com/aeterna/aeterna/internal/crypto"
	"github.com/aeterna/aeterna/internal/report"
	"github.com/aeterna/aeterna/internal/vault"
)

// LicenseInfo identifies the customer context a session was run under.
// It feeds the finalized report's canonical fields.
type LicenseInfo struct {
	Customer string
	Type     string
	Scope    string
}

// Engine records events for one audit session. All chain computation
// happens inside the store's append lock, so records never compute
// against a stale previous hash.
type Engine struct {
	sessionID   string
	store       *vault.Store
	signer      *crypto.Signer
	logger      *slog.Logger
	hwID        string
	fingerprint string
	now         func() time.Time
}

// New returns an engine bound to the given session.
func New(sessionID string, store *vault.Store, signer *crypto.Signer, logger *slog.Logger) *Engine {
	hwID := HardwareID()
	return &Engine{
		sessionID:   sessionID,
		store:       store,
		signer:      signer,
		logger:      logger,
		hwID:        hwID,
		fingerprint: InstanceFingerprint(sessionID, hwID),
		now:         time.Now,
	}
}

// SessionID returns the session this engine records under.
func (e *Engine) SessionID() string { return e.sessionID }

// Fingerprint returns the derived instance fingerprint.
func (e *Engine) Fingerprint() string { return e.fingerprint }

// RecordEvent appends one immutable, chained, signed record.
//
// The chain hash covers session_id, timestamp, event_type, the canonical
// payload, and the previous hash, concatenated in that order with no
// delimiters. Metadata is informational only and never enters the hash.
func (e *Engine) RecordEvent(ctx context.Context, eventType string, payload, meta map[string]any) error {
	timestamp := e.now().UTC().Format(time.RFC3339Nano)

	payloadStr, err := canonical.MarshalString(payload)
	if err != nil {
		return fmt.Errorf("canonicalizing payload: %w", err)
	}

	metadata := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		metadata[k] = v
	}
	metadata["hw_id"] = e.hwID
	metadata["session_id"] = e.sessionID
	metadata["instance_fingerprint"] = e.fingerprint
	metadataStr, err := canonical.MarshalString(metadata)
	if err != nil {
		return fmt.Errorf("canonicalizing metadata: %w", err)
	}

	seq, err := e.store.Append(ctx, func(previousHash string) (vault.Record, error) {
		currentHash := crypto.HashString(e.sessionID + timestamp + eventType + payloadStr + previousHash)
		return vault.Record{
			SessionID:    e.sessionID,
			Timestamp:    timestamp,
			EventType:    eventType,
			Payload:      payloadStr,
			PreviousHash: previousHash,
			CurrentHash:  currentHash,
			Signature:    e.signer.Sign(currentHash),
			Metadata:     metadataStr,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}

	e.logger.Info("event recorded",
		"session", e.sessionID, "sequence", seq, "type", eventType)
	return nil
}

// FinalizeSession counts the session's records, fixes the verdict, and
// seals the canonical report. With unchanged stored records, repeated
// finalization reproduces every canonical field except verified_at, which
// is wall-clock by design.
func (e *Engine) FinalizeSession(ctx context.Context, lic LicenseInfo, scopeStatus string) (*report.Finalized, error) {
	records, err := e.store.RecordsForSession(ctx, e.sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetching session records: %w", err)
	}

	verdict := report.VerdictValid
	if len(records) == 0 {
		verdict = report.VerdictNoData
	}

	f := &report.Finalized{
		Verdict:             verdict,
		VerifiedAt:          e.now().UTC().Format(time.RFC3339Nano),
		InstanceID:          e.sessionID,
		InstanceFingerprint: e.fingerprint,
		Customer:            lic.Customer,
		LicenseType:         lic.Type,
		Scope:               lic.Scope,
		CheckedEvents:       len(records),
		ScopeStatus:         scopeStatus,
	}
	if err := f.Seal(e.signer); err != nil {
		return nil, err
	}

	e.logger.Info("session finalized",
		"session", e.sessionID, "verdict", verdict, "checked_events", len(records))
	return f, nil
}
