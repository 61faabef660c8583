package idhash

import (
	"testing"

	"bragg-dose-lab/internal/domain"
)

func TestComputeSampleFingerprint(t *testing.T) {
	a := []domain.DepthDoseSample{{Depth: 0.5, Dose: 7.1}, {Depth: 1.5, Dose: 7.3}}
	b := []domain.DepthDoseSample{{Depth: 0.5, Dose: 7.1}, {Depth: 1.5, Dose: 7.3}}
	c := []domain.DepthDoseSample{{Depth: 1.5, Dose: 7.3}, {Depth: 0.5, Dose: 7.1}}

	fa := ComputeSampleFingerprint(a)
	if len(fa) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(fa))
	}
	if fa != ComputeSampleFingerprint(b) {
		t.Error("equal series must have equal fingerprints")
	}
	if fa == ComputeSampleFingerprint(c) {
		t.Error("order must change the fingerprint")
	}
	if ComputeSampleFingerprint(nil) != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Error("empty series must hash to the SHA256 of the empty string")
	}
}

func TestComputeFitID(t *testing.T) {
	seed := domain.FitParameters{Phi0: 1, Epsilon: 0.1, R0: 16.1, Beta: 0.012, Sigma: 0.3}

	tests := []struct {
		name     string
		particle domain.Particle
		set      string
		seed     domain.FitParameters
		same     bool
	}{
		{"identical", domain.ParticleProton, "BraggParameters.csv", seed, true},
		{"particle", domain.ParticleCarbon, "BraggParameters.csv", seed, false},
		{"parameter set", domain.ParticleProton, "other", seed, false},
		{"seed", domain.ParticleProton, "BraggParameters.csv", domain.FitParameters{Phi0: 1, Epsilon: 0.1, R0: 16.2, Beta: 0.012, Sigma: 0.3}, false},
	}

	base := ComputeFitID("fp", domain.ParticleProton, "BraggParameters.csv", seed)
	if len(base) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(base))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFitID("fp", tt.particle, tt.set, tt.seed)
			if (got == base) != tt.same {
				t.Errorf("ComputeFitID = %s, base %s, want same=%v", got, base, tt.same)
			}
		})
	}
}
