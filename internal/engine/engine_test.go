package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeterna/aeterna/internal/canonical"
	"github.com/aeterna/aeterna/internal/crypto"
	"github.com/aeterna/aeterna/internal/report"
	"github.com/aeterna/aeterna/internal/vault"
)

func newTestEngine(t *testing.T, sessionID string) (*Engine, *vault.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := vault.NewStore(filepath.Join(t.TempDir(), "vault.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	signer, err := crypto.NewSigner([]byte("engine-test-key"))
	require.NoError(t, err)

	return New(sessionID, store, signer, logger), store
}

func TestRecordEventChainsAndSigns(t *testing.T) {
	eng, store := newTestEngine(t, "S1")
	ctx := context.Background()

	require.NoError(t, eng.RecordEvent(ctx, "TX_CHECK", map[string]any{"a": 1}, nil))
	require.NoError(t, eng.RecordEvent(ctx, "TX_CHECK", map[string]any{"b": 2}, nil))

	records, err := store.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, crypto.Genesis, first.PreviousHash)
	assert.Equal(t, `{"a":1}`, first.Payload)

	// Recompute the chain hash from stored raw fields.
	want := crypto.HashString(first.SessionID + first.Timestamp + first.EventType + first.Payload + first.PreviousHash)
	assert.Equal(t, want, first.CurrentHash)

	signer, err := crypto.NewSigner([]byte("engine-test-key"))
	require.NoError(t, err)
	assert.True(t, signer.Verify(first.CurrentHash, first.Signature))

	second := records[1]
	assert.Equal(t, first.CurrentHash, second.PreviousHash)
}

func TestRecordEventMetadata(t *testing.T) {
	eng, store := newTestEngine(t, "S1")
	ctx := context.Background()

	require.NoError(t, eng.RecordEvent(ctx, "TX_CHECK", map[string]any{"a": 1},
		map[string]any{"operator": "jdoe", "session_id": "spoofed"}))

	records, err := store.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(records[0].Metadata), &meta))
	assert.Equal(t, "jdoe", meta["operator"])
	// Engine-supplied keys win over caller metadata.
	assert.Equal(t, "S1", meta["session_id"])
	assert.Equal(t, eng.Fingerprint(), meta["instance_fingerprint"])
	assert.NotEmpty(t, meta["hw_id"])

	// Metadata is canonical: re-serializing yields the stored bytes.
	again, err := canonical.MarshalString(meta)
	require.NoError(t, err)
	assert.Equal(t, records[0].Metadata, again)
}

func TestFingerprintStable(t *testing.T) {
	hw := HardwareID()
	assert.Equal(t, hw, HardwareID())

	fp := InstanceFingerprint("S1", hw)
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, InstanceFingerprint("S1", hw))
	assert.NotEqual(t, fp, InstanceFingerprint("S2", hw))
}

func TestFinalizeSession(t *testing.T) {
	eng, _ := newTestEngine(t, "S1")
	ctx := context.Background()

	for _, p := range []map[string]any{{"a": 1}, {"b": 2}, {"c": 3}} {
		require.NoError(t, eng.RecordEvent(ctx, "TX_CHECK", p, nil))
	}

	lic := LicenseInfo{Customer: "Acme", Type: "STANDARD", Scope: "Q1"}
	f, err := eng.FinalizeSession(ctx, lic, "OK")
	require.NoError(t, err)

	assert.Equal(t, report.VerdictValid, f.Verdict)
	assert.Equal(t, 3, f.CheckedEvents)
	assert.Equal(t, "Acme", f.Customer)
	assert.Equal(t, "STANDARD", f.LicenseType)
	assert.Equal(t, "Q1", f.Scope)
	assert.Equal(t, "OK", f.ScopeStatus)
	assert.Equal(t, "S1", f.InstanceID)
	assert.Equal(t, eng.Fingerprint(), f.InstanceFingerprint)

	// Independently recompute the report hash from the returned fields.
	b, err := f.CanonicalBytes()
	require.NoError(t, err)
	assert.Equal(t, crypto.Hash(b), f.ReportHash)

	signer, err := crypto.NewSigner([]byte("engine-test-key"))
	require.NoError(t, err)
	assert.True(t, signer.Verify(f.ReportHash, f.ReportSignature))
}

func TestFinalizeEmptySession(t *testing.T) {
	eng, _ := newTestEngine(t, "S-empty")

	f, err := eng.FinalizeSession(context.Background(), LicenseInfo{Customer: "Acme"}, "OK")
	require.NoError(t, err)
	assert.Equal(t, report.VerdictNoData, f.Verdict)
	assert.Equal(t, 0, f.CheckedEvents)
}

func TestFinalizeIdempotentExceptVerifiedAt(t *testing.T) {
	eng, _ := newTestEngine(t, "S1")
	ctx := context.Background()
	require.NoError(t, eng.RecordEvent(ctx, "TX_CHECK", map[string]any{"a": 1}, nil))

	// Pin the clock so both finalizations share verified_at; everything
	// else must then be byte-identical.
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return fixed }

	f1, err := eng.FinalizeSession(ctx, LicenseInfo{Customer: "Acme", Type: "STANDARD", Scope: "Q1"}, "OK")
	require.NoError(t, err)
	f2, err := eng.FinalizeSession(ctx, LicenseInfo{Customer: "Acme", Type: "STANDARD", Scope: "Q1"}, "OK")
	require.NoError(t, err)

	b1, err := f1.CanonicalBytes()
	require.NoError(t, err)
	b2, err := f2.CanonicalBytes()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
	assert.Equal(t, f1.ReportHash, f2.ReportHash)
	assert.Equal(t, f1.ReportSignature, f2.ReportSignature)
}
