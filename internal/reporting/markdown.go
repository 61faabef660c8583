package reporting

import (
	"fmt"
	"strings"
	"time"

	"bragg-dose-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Bragg Curve Fit Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Fit: %s | Dataset: %s | Particle: %s\n\n", r.FitID, r.Dataset, r.Particle))
	if r.Fingerprint != "" {
		sb.WriteString(fmt.Sprintf("Dataset fingerprint: `%s`\n\n", r.Fingerprint))
	}

	// Model
	sb.WriteString("## Model Parameters\n\n")
	sb.WriteString("| Parameter | Value | Unit |\n")
	sb.WriteString("|-----------|-------|------|\n")
	sb.WriteString(fmt.Sprintf("| p | %.6g | |\n", r.Model.P))
	sb.WriteString(fmt.Sprintf("| gamma | %.6g | |\n", r.Model.Gamma))
	sb.WriteString(fmt.Sprintf("| alpha | %.6g | %s |\n", r.Model.Alpha, r.Model.AlphaUnit))
	sb.WriteString(fmt.Sprintf("| rho | %.6g | %s |\n", r.Model.Rho, r.Model.RhoUnit))
	sb.WriteString(fmt.Sprintf("| (1/p-1)! | %.6g | |\n", r.FactorialTerm))
	sb.WriteString("\n")

	// Fit
	sb.WriteString("## Fit Parameters\n\n")
	if r.FitError != "" {
		sb.WriteString(fmt.Sprintf("**Fit error:** %s\n\n", r.FitError))
	}
	if r.Result != nil {
		seed := r.Seed.Vector()
		lo, hi := r.Bounds.Lower.Vector(), r.Bounds.Upper.Vector()
		best := r.Result.Params.Vector()
		sb.WriteString("| Parameter | Seed | Lower | Upper | Fitted | StdErr |\n")
		sb.WriteString("|-----------|------|-------|-------|--------|--------|\n")
		for i, name := range domain.FitParameterNames {
			sb.WriteString(fmt.Sprintf("| %s | %.6g | %.6g | %.6g | %.6g | %.3g |\n",
				name, seed[i], lo[i], hi[i], best[i], r.Result.StdErr[i]))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Cost: %.6g | Reduced chi2: %.6g | Iterations: %d | Evaluations: %d\n\n",
			r.Result.Cost, r.ReducedChiSquare(), r.Result.Iterations, r.Result.Evaluations))
	} else {
		sb.WriteString("No fit result available.\n\n")
	}

	// Quality
	sb.WriteString("## Fit Quality\n\n")
	sb.WriteString("| Check | Threshold | Actual | Status |\n")
	sb.WriteString("|-------|-----------|--------|--------|\n")
	for _, check := range r.Quality.Checks {
		status := "FAIL"
		if check.Pass {
			status = "PASS"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			check.Name, check.Threshold, check.Actual, status))
	}
	sb.WriteString("\n")
	if r.Quality.AllChecksPassed {
		sb.WriteString("**All checks passed.**\n\n")
	} else {
		sb.WriteString("**Some checks failed.**\n\n")
	}

	// Samples
	sb.WriteString("## Samples\n\n")
	if len(r.Samples) > 0 {
		sb.WriteString("| Depth (cm) | Dose | Fitted | Residual | Region |\n")
		sb.WriteString("|------------|------|--------|----------|--------|\n")
		for _, s := range r.Samples {
			sb.WriteString(fmt.Sprintf("| %.4f | %.6g | %.6g | %.3g | %s |\n",
				s.Depth, s.Dose, s.Fitted, s.Residual, s.Region))
		}
	} else {
		sb.WriteString("No samples available.\n")
	}
	sb.WriteString("\n")

	// Series
	sb.WriteString("## Dose per Effective Volume\n\n")
	if len(r.Series) > 0 {
		sb.WriteString("| Depth (cm) | dz | T (MeV) | yPlane (cm) | dV (cm3) | Dose | Dose/dV |\n")
		sb.WriteString("|------------|----|---------|-------------|----------|------|---------|\n")
		for _, s := range r.Series {
			sb.WriteString(fmt.Sprintf("| %.4f | %.4f | %.3f | %.4g | %.4g | %.6g | %.6g |\n",
				s.Depth, s.Dz, s.Kinetic, s.YPlane, s.Volume, s.Dose, s.VolumeDose))
		}
	} else {
		sb.WriteString("No series available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
