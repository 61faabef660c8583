package reporting

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/phpdave11/gofpdf"

	"bragg-dose-lab/internal/domain"
)

// Plot area on an A4 portrait page (mm).
const (
	plotLeft   = 25.0
	plotTop    = 150.0
	plotWidth  = 160.0
	plotHeight = 100.0
)

// WritePDF writes a one-page summary: fitted parameters, checks and a
// plot of the samples against the overlay.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Bragg Curve Fit Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Fit: %s", r.FitID))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Dataset: %s (%s)", r.Dataset, r.Particle))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Date: %s", r.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 10)
	for _, h := range []string{"Parameter", "Seed", "Fitted", "StdErr"} {
		pdf.CellFormat(40, 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	seed := r.Seed.Vector()
	for i, name := range domain.FitParameterNames {
		fitted, stderr := "-", "-"
		if r.Result != nil {
			fitted = fmt.Sprintf("%.5g", r.Result.Params.Vector()[i])
			stderr = fmt.Sprintf("%.3g", r.Result.StdErr[i])
		}
		pdf.CellFormat(40, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.5g", seed[i]), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fitted, "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, stderr, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	if r.FitError != "" {
		pdf.MultiCell(0, 5, "Fit error: "+r.FitError, "", "L", false)
	}
	for _, c := range r.Quality.Checks {
		status := "FAIL"
		if c.Pass {
			status = "PASS"
		}
		pdf.Cell(0, 5, fmt.Sprintf("%s: %s (%s)", c.Name, c.Actual, status))
		pdf.Ln(5)
	}

	depthDose := plotData{yLabel: "dose"}
	volumeDose := plotData{yLabel: "dose per volume"}
	for _, p := range r.Overlay {
		depthDose.curve = append(depthDose.curve, [2]float64{p.Depth, p.Dose})
		volumeDose.curve = append(volumeDose.curve, [2]float64{p.Depth, p.VolumeDose})
	}
	for _, s := range r.Samples {
		depthDose.points = append(depthDose.points, [2]float64{s.Depth, s.Dose})
	}
	for _, s := range r.Series {
		volumeDose.points = append(volumeDose.points, [2]float64{s.Depth, s.VolumeDose})
	}
	drawPlot(pdf, plotTop, depthDose)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Dose per Effective Volume")
	pdf.Ln(10)
	drawPlot(pdf, 30, volumeDose)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// plotData is a fitted curve and the measured points drawn over it, as
// (depth, value) pairs.
type plotData struct {
	yLabel string
	curve  [][2]float64
	points [][2]float64
}

func drawPlot(pdf *gofpdf.Fpdf, top float64, d plotData) {
	var zMax, vMax float64
	for _, p := range append(append([][2]float64{}, d.curve...), d.points...) {
		zMax = math.Max(zMax, p[0])
		vMax = math.Max(vMax, p[1])
	}
	if zMax <= 0 || vMax <= 0 {
		return
	}
	vMax *= 1.05

	px := func(z float64) float64 { return plotLeft + z/zMax*plotWidth }
	py := func(v float64) float64 { return top + plotHeight - v/vMax*plotHeight }

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Rect(plotLeft, top, plotWidth, plotHeight, "D")
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(plotLeft+plotWidth/2-10, top+plotHeight+6, fmt.Sprintf("depth (cm), max %.1f", zMax))
	pdf.Text(plotLeft-3, top-2, fmt.Sprintf("%s, max %.3g", d.yLabel, vMax))

	pdf.SetDrawColor(200, 30, 30)
	pdf.SetLineWidth(0.4)
	for i := 1; i < len(d.curve); i++ {
		a, b := d.curve[i-1], d.curve[i]
		pdf.Line(px(a[0]), py(a[1]), px(b[0]), py(b[1]))
	}

	pdf.SetDrawColor(20, 20, 160)
	pdf.SetFillColor(20, 20, 160)
	for _, p := range d.points {
		pdf.Circle(px(p[0]), py(p[1]), 0.8, "F")
	}
}
