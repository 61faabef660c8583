package params

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
)

// braggRows mirrors the combined parameter table shipped with the analysis.
func braggRows() []domain.ParameterRow {
	return []domain.ParameterRow{
		{Label: "Exponent of range-energy relation", Value: 1.77},
		{Label: "Fraction of energy in nonelastic nuclear interactions", Value: 0.6},
		{Label: "Proportionality factor", Value: 0.0022, Unit: "cm MeV^-p"},
		{Label: "Density", Value: 1.0, Unit: "g/cm^3"},
		{Label: "Ionisation energy", Value: 13.6, Unit: "MeV"},
		{Label: "Charge number", Value: 1},
		{Label: "Radiation length (water)", Value: 36.08, Unit: "g/cm^2"},
		{Label: "Projectile mass (proton)", Value: 938.272, Unit: "MeV"},
		{Label: "Coefficient for dE/dx", Value: 0.307075, Unit: "MeV cm^2/mol"},
		{Label: "Effective atomic number <Z>", Value: 7.42},
		{Label: "Effective mass number <A>", Value: 13.0},
	}
}

func testLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(buf, "", 0)
}

func TestParseModel(t *testing.T) {
	var buf bytes.Buffer
	m, err := ParseModel(braggRows(), testLogger(&buf))
	require.NoError(t, err)

	assert.Equal(t, 1.77, m.P)
	assert.Equal(t, 0.6, m.Gamma)
	assert.Equal(t, 0.0022, m.Alpha)
	assert.Equal(t, "cm MeV^-p", m.AlphaUnit)
	assert.Equal(t, 1.0, m.Rho)
	assert.Equal(t, "g/cm^3", m.RhoUnit)

	// The MCS and dE/dx rows are not Bortfeld parameters.
	assert.Contains(t, buf.String(), "unprocessed control field")
	assert.Contains(t, buf.String(), "Ionisation energy")
}

func TestParseModel_MissingLabel(t *testing.T) {
	rows := braggRows()[1:] // drop the range-energy exponent

	_, err := ParseModel(rows, testLogger(&bytes.Buffer{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.Contains(t, err.Error(), "range-energy")
}

func TestParseModel_InvalidValue(t *testing.T) {
	rows := braggRows()
	rows[1].Value = 1.2 // gamma must be < 1

	_, err := ParseModel(rows, testLogger(&bytes.Buffer{}))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestParseMCS(t *testing.T) {
	m, err := ParseMCS(braggRows(), testLogger(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, 13.6, m.IonisationEnergy)
	assert.Equal(t, 1.0, m.ChargeNumber)
	assert.Equal(t, 36.08, m.X0)
	assert.Equal(t, 938.272, m.ProjectileMass)
	assert.Equal(t, "MeV", m.ProjectileMassUnit)

	assert.InDelta(t, 13.6/(2*6.00666), m.Eta1(), 1e-4)
	assert.InDelta(t, 938.272/(2*36.08), m.Alpha1(), 1e-9)
	assert.InDelta(t, 36.08, m.RadiationLength(), 1e-12)
}

func TestParseMCS_ChargeNumberIsExactMatch(t *testing.T) {
	rows := braggRows()
	rows[5].Label = "Charge number of target"

	_, err := ParseMCS(rows, testLogger(&bytes.Buffer{}))
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestParseStopping(t *testing.T) {
	s, err := ParseStopping(braggRows(), testLogger(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, 0.307075, s.K)
	assert.Equal(t, 7.42, s.Z)
	assert.Equal(t, 13.0, s.A)
	assert.Equal(t, 1.0, s.ChargeNumber)
	assert.InDelta(t, 0.307075*7.42/13.0, s.Eta1(), 1e-12)
}

func TestParse_LaterRowOverrides(t *testing.T) {
	rows := append(braggRows(), domain.ParameterRow{Label: "Density", Value: 1.05, Unit: "g/cm^3"})

	m, err := ParseModel(rows, testLogger(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, 1.05, m.Rho)
}
