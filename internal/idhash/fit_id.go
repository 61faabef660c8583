package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"bragg-dose-lab/internal/domain"
)

// ComputeFitID computes a deterministic fit_id using SHA256.
// Formula: SHA256(fingerprint|particle|parameter_set|phi0|epsilon|r0|beta|sigma)
// over the seed parameters. Returns the first 16 hex characters.
func ComputeFitID(
	fingerprint string,
	particle domain.Particle,
	parameterSet string,
	seed domain.FitParameters,
) string {
	data := fmt.Sprintf("%s|%s|%s|%g|%g|%g|%g|%g",
		fingerprint,
		string(particle),
		parameterSet,
		seed.Phi0,
		seed.Epsilon,
		seed.R0,
		seed.Beta,
		seed.Sigma,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
