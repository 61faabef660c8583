package domain

// Particle identifies the projectile species.
type Particle string

const (
	ParticleProton Particle = "proton"
	ParticleCarbon Particle = "carbon"
)

// String returns the string representation of Particle.
func (p Particle) String() string {
	return string(p)
}

// IsValid checks if the particle is a known species.
func (p Particle) IsValid() bool {
	return p == ParticleProton || p == ParticleCarbon
}
