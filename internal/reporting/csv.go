package reporting

import (
	"fmt"
	"strings"

	"bragg-dose-lab/internal/trends"
)

// RenderSamplesCSV renders samples with fitted values as CSV string.
func RenderSamplesCSV(rows []SampleRow) string {
	var sb strings.Builder

	sb.WriteString("depth_cm,dose,fitted,residual,region\n")
	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("%.6f,%.9g,%.9g,%.9g,%s\n",
			s.Depth, s.Dose, s.Fitted, s.Residual, s.Region))
	}

	return sb.String()
}

// RenderOverlayCSV renders the fitted curve as CSV string.
func RenderOverlayCSV(points []CurvePoint) string {
	var sb strings.Builder

	sb.WriteString("depth_cm,dose,volume_dose\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%.6f,%.9g,%.9g\n", p.Depth, p.Dose, p.VolumeDose))
	}

	return sb.String()
}

// RenderSeriesCSV renders the dose per effective volume as CSV string.
func RenderSeriesCSV(rows []SeriesRow) string {
	var sb strings.Builder

	sb.WriteString("depth_cm,dz_cm,kinetic_mev,yplane_cm,volume_cm3,dose,volume_dose\n")
	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("%.6f,%.6f,%.6f,%.9g,%.9g,%.9g,%.9g\n",
			s.Depth, s.Dz, s.Kinetic, s.YPlane, s.Volume, s.Dose, s.VolumeDose))
	}

	return sb.String()
}

// RenderTrendsCSV renders a trend table as CSV string.
func RenderTrendsCSV(rows []trends.Row) string {
	var sb strings.Builder

	sb.WriteString("x_cm,t_mev,e_mev,p_mev,gamma,beta,yplane_cm,de_mev,area_cm2,volume_cm3\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%.4f,%.6f,%.6f,%.6f,%.9g,%.9g,%.9g,%.9g,%.9g,%.9g\n",
			r.X, r.T, r.E, r.P, r.Gamma, r.Beta, r.YPlane, r.DE, r.Area, r.Volume))
	}

	return sb.String()
}
