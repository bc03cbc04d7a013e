package engine

import (
	"net"
	"os"

	"github.com/aeterna/aeterna/internal/crypto"
)

// fingerprintLen is the display length of an instance fingerprint.
const fingerprintLen = 12

// HardwareID derives a stable identity hash for the machine this process
// runs on, from the hostname and the first non-loopback hardware address.
// It is informational metadata, not a trust anchor.
func HardwareID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	return crypto.HashString(host + firstHardwareAddr())
}

// InstanceFingerprint derives the short, stable per-session fingerprint
// copied into every record's metadata and into the finalized report.
func InstanceFingerprint(sessionID, hardwareID string) string {
	return crypto.HashString(sessionID + hardwareID)[:fingerprintLen]
}

func firstHardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}
