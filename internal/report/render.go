package report

import (
	"fmt"
	"io"
)

// Renderer turns a finalized report into a human-facing document. The
// production document renderer (PDF) lives outside this core; TextRenderer
// stands in for it.
type Renderer interface {
	Render(w io.Writer, f *Finalized) error
}

// TextRenderer writes a plain-text summary of a finalized report.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, f *Finalized) error {
	lines := []struct{ label, value string }{
		{"Verdict", f.Verdict},
		{"Verified at", f.VerifiedAt},
		{"Instance", f.InstanceID},
		{"Fingerprint", f.InstanceFingerprint},
		{"Customer", f.Customer},
		{"License", f.LicenseType},
		{"Scope", f.Scope},
		{"Scope status", f.ScopeStatus},
		{"Checked events", fmt.Sprintf("%d", f.CheckedEvents)},
		{"Report hash", f.ReportHash},
		{"Signature", f.ReportSignature},
	}

	if _, err := fmt.Fprintln(w, "AETERNA — INTEGRITY AUDIT REPORT"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "────────────────────────────────────────"); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-16s %s\n", l.label+":", l.value); err != nil {
			return err
		}
	}
	return nil
}
