package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bragg-dose-lab/internal/domain"
)

// Workbook sheet names.
const (
	SheetFit     = "Fit"
	SheetSamples = "Samples"
	SheetOverlay = "Overlay"
	SheetSeries  = "Series"
)

// WriteXLSX writes the report as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetFit); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSamples, SheetOverlay, SheetSeries} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	if err := writeFitSheet(f, r); err != nil {
		return err
	}

	samples := [][]any{{"depth_cm", "dose", "fitted", "residual", "region"}}
	for _, s := range r.Samples {
		samples = append(samples, []any{s.Depth, s.Dose, s.Fitted, s.Residual, s.Region})
	}
	if err := writeRows(f, SheetSamples, samples); err != nil {
		return err
	}

	overlay := [][]any{{"depth_cm", "dose", "volume_dose"}}
	for _, p := range r.Overlay {
		overlay = append(overlay, []any{p.Depth, p.Dose, p.VolumeDose})
	}
	if err := writeRows(f, SheetOverlay, overlay); err != nil {
		return err
	}

	series := [][]any{{"depth_cm", "dz_cm", "kinetic_mev", "yplane_cm", "volume_cm3", "dose", "volume_dose"}}
	for _, s := range r.Series {
		series = append(series, []any{s.Depth, s.Dz, s.Kinetic, s.YPlane, s.Volume, s.Dose, s.VolumeDose})
	}
	if err := writeRows(f, SheetSeries, series); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeFitSheet(f *excelize.File, r *Report) error {
	rows := [][]any{
		{"fit_id", r.FitID},
		{"dataset", r.Dataset},
		{"particle", r.Particle.String()},
		{"fingerprint", r.Fingerprint},
		{"generated_at", r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"factorial_term", r.FactorialTerm},
		{"fit_error", r.FitError},
		{},
		{"parameter", "seed", "lower", "upper", "fitted", "stderr"},
	}
	seed := r.Seed.Vector()
	lo, hi := r.Bounds.Lower.Vector(), r.Bounds.Upper.Vector()
	for i, name := range domain.FitParameterNames {
		row := []any{name, seed[i], lo[i], hi[i]}
		if r.Result != nil {
			row = append(row, r.Result.Params.Vector()[i], r.Result.StdErr[i])
		}
		rows = append(rows, row)
	}
	if r.Result != nil {
		rows = append(rows,
			[]any{},
			[]any{"cost", r.Result.Cost},
			[]any{"iterations", r.Result.Iterations},
			[]any{"evaluations", r.Result.Evaluations},
			[]any{"converged", r.Result.Converged},
		)
	}
	return writeRows(f, SheetFit, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
