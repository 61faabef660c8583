package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"bragg-dose-lab/internal/domain"
)

// ComputeSampleFingerprint computes a deterministic fingerprint of a
// depth-dose series using SHA256.
// Formula: SHA256(depth|dose\n ... ) over the samples in order, with
// values printed in shortest round-trip form.
// Returns hex-encoded hash (64 characters).
func ComputeSampleFingerprint(samples []domain.DepthDoseSample) string {
	h := sha256.New()
	for _, s := range samples {
		fmt.Fprintf(h, "%g|%g\n", s.Depth, s.Dose)
	}
	return hex.EncodeToString(h.Sum(nil))
}
