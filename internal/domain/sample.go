package domain

// DepthDoseSample is one detector station of an aggregated depth-dose series.
type DepthDoseSample struct {
	Depth float64 // cm
	Dose  float64 // MeV cm^-1 particle^-1
}

// Hit is one raw energy-deposition record from the simulated detector.
type Hit struct {
	Station       int     // station id
	Event         int     // event number
	Fibre         int     // fibre hit
	EnergyDeposit float64 // MeV
	X             float64 // mm
	Y             float64 // mm
	Z             float64 // mm
	Depth         float64 // mm
	Time          float64 // ns
}

// Depths returns the depth column of a sample series.
func Depths(samples []DepthDoseSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Depth
	}
	return out
}

// Doses returns the dose column of a sample series.
func Doses(samples []DepthDoseSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Dose
	}
	return out
}
