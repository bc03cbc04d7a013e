// Package report defines the finalized session report: a non-chained
// artifact whose integrity rests on a hash over a fixed, ordered canonical
// field set, re-derivable by anyone holding the artifact and the key.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aeterna/aeterna/internal/canonical"
	"github.com/aeterna/aeterna/internal/crypto"
	"github.com/aeterna/aeterna/internal/safefile"
)

// maxArtifactBytes caps how large a report artifact may be when loaded
// back for verification.
const maxArtifactBytes = 1 << 20

// VerdictValid and VerdictNoData are the only verdicts a finalized
// session can carry: binary, no degraded state.
const (
	VerdictValid  = "VALID"
	VerdictNoData = "NO DATA"
)

// Finalized is a completed session report. The first nine fields are the
// canonical contract: report_hash is computed over exactly those, in
// canonical JSON form, and nothing else may ever influence it.
type Finalized struct {
	Verdict             string `json:"verdict"`
	VerifiedAt          string `json:"verified_at"`
	InstanceID          string `json:"instance_id"`
	InstanceFingerprint string `json:"instance_fingerprint"`
	Customer            string `json:"customer"`
	LicenseType         string `json:"license_type"`
	Scope               string `json:"scope"`
	CheckedEvents       int    `json:"checked_events"`
	ScopeStatus         string `json:"scope_status"`

	ReportHash      string `json:"report_hash"`
	ReportSignature string `json:"report_signature"`
}

// CanonicalBytes returns the compact canonical JSON of the nine canonical
// fields. This is the exact byte sequence report_hash is computed over.
func (f *Finalized) CanonicalBytes() ([]byte, error) {
	return canonical.Marshal(map[string]any{
		"verdict":              f.Verdict,
		"verified_at":          f.VerifiedAt,
		"instance_id":          f.InstanceID,
		"instance_fingerprint": f.InstanceFingerprint,
		"customer":             f.Customer,
		"license_type":         f.LicenseType,
		"scope":                f.Scope,
		"checked_events":       f.CheckedEvents,
		"scope_status":         f.ScopeStatus,
	})
}

// Seal computes and sets report_hash and report_signature from the
// canonical fields.
func (f *Finalized) Seal(signer *crypto.Signer) error {
	b, err := f.CanonicalBytes()
	if err != nil {
		return fmt.Errorf("canonicalizing report: %w", err)
	}
	f.ReportHash = crypto.Hash(b)
	f.ReportSignature = signer.Sign(f.ReportHash)
	return nil
}

// WriteArtifact persists the report as pretty-printed JSON under dir and
// returns the written path. The artifact is the machine-checkable
// companion payload for any rendered document; verification always
// re-canonicalizes, so pretty printing here is safe.
func (f *Finalized) WriteArtifact(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}

	safeTime := strings.ReplaceAll(f.VerifiedAt, ":", "-")
	path := filepath.Join(dir, fmt.Sprintf("audit_%s_%s.json", f.InstanceID, safeTime))

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing report artifact: %w", err)
	}
	return path, nil
}

// Load reads a report artifact back from disk.
func Load(path string) (*Finalized, error) {
	data, err := safefile.ReadFileMax(path, maxArtifactBytes)
	if err != nil {
		return nil, err
	}
	var f Finalized
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing report artifact %s: %w", path, err)
	}
	return &f, nil
}
