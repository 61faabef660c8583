// Package params turns flat parameter tables into typed parameter records.
//
// Rows are matched by label. A row that no field of the record claims is
// logged and skipped; a required field that no row provides is an error.
package params

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"bragg-dose-lab/internal/domain"
)

// ErrMissingParameter is returned when a required label is absent.
var ErrMissingParameter = errors.New("missing parameter")

// matchKind selects how a field matches a row label.
type matchKind int

const (
	matchContains matchKind = iota
	matchEquals
)

// field binds a label pattern to the value and unit destinations.
type field struct {
	name  string
	match matchKind
	value *float64
	unit  *string
	seen  bool
}

func (f *field) matches(label string) bool {
	if f.match == matchEquals {
		return label == f.name
	}
	return strings.Contains(label, f.name)
}

// parse assigns each row to the first matching field and fails if any
// field was left unassigned. A later row with the same label overrides
// an earlier one.
func parse(component string, rows []domain.ParameterRow, fields []*field, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	for _, row := range rows {
		label := strings.TrimSpace(row.Label)
		matched := false
		for _, f := range fields {
			if !f.matches(label) {
				continue
			}
			*f.value = row.Value
			if f.unit != nil {
				*f.unit = strings.TrimSpace(row.Unit)
			}
			f.seen = true
			matched = true
			break
		}
		if !matched {
			logger.Printf("[params] %s: unprocessed control field: %q %g %q", component, label, row.Value, row.Unit)
		}
	}

	for _, f := range fields {
		if !f.seen {
			return fmt.Errorf("%s: %q: %w", component, f.name, ErrMissingParameter)
		}
	}
	return nil
}

// ParseModel extracts the Bortfeld model parameters and validates them.
func ParseModel(rows []domain.ParameterRow, logger *log.Logger) (domain.ModelParameters, error) {
	var m domain.ModelParameters
	fields := []*field{
		{name: "range-energy", value: &m.P},
		{name: "nonelastic nuc", value: &m.Gamma},
		{name: "Proportionality factor", value: &m.Alpha, unit: &m.AlphaUnit},
		{name: "Density", value: &m.Rho, unit: &m.RhoUnit},
	}
	if err := parse("bortfeld", rows, fields, logger); err != nil {
		return domain.ModelParameters{}, err
	}
	if err := m.Validate(); err != nil {
		return domain.ModelParameters{}, fmt.Errorf("bortfeld: %w", err)
	}
	return m, nil
}

// ParseMCS extracts the multiple-scattering parameters.
func ParseMCS(rows []domain.ParameterRow, logger *log.Logger) (domain.MCSParameters, error) {
	var m domain.MCSParameters
	fields := []*field{
		{name: "Ionisation energy", match: matchEquals, value: &m.IonisationEnergy, unit: &m.IonisationEnergyUnit},
		{name: "Charge number", match: matchEquals, value: &m.ChargeNumber},
		{name: "Radiation length", value: &m.X0, unit: &m.X0Unit},
		{name: "Density", value: &m.Rho, unit: &m.RhoUnit},
		{name: "Projectile mass", value: &m.ProjectileMass, unit: &m.ProjectileMassUnit},
	}
	if err := parse("mcs", rows, fields, logger); err != nil {
		return domain.MCSParameters{}, err
	}
	if m.X0 <= 0 || m.Rho <= 0 || m.ProjectileMass <= 0 {
		return domain.MCSParameters{}, fmt.Errorf("mcs: X0, density and projectile mass must be positive: %w", domain.ErrInvalidArgument)
	}
	return m, nil
}

// ParseStopping extracts the dE/dx parameters.
func ParseStopping(rows []domain.ParameterRow, logger *log.Logger) (domain.StoppingParameters, error) {
	var s domain.StoppingParameters
	fields := []*field{
		{name: "Coefficient for dE/dx", match: matchEquals, value: &s.K, unit: &s.KUnit},
		{name: "<Z>", value: &s.Z},
		{name: "<A>", value: &s.A},
		{name: "Charge number", match: matchEquals, value: &s.ChargeNumber},
		{name: "Projectile mass", value: &s.ProjectileMass, unit: &s.ProjectileMassUnit},
	}
	if err := parse("dedx", rows, fields, logger); err != nil {
		return domain.StoppingParameters{}, err
	}
	if s.A <= 0 {
		return domain.StoppingParameters{}, fmt.Errorf("dedx: <A> must be positive: %w", domain.ErrInvalidArgument)
	}
	return s, nil
}
