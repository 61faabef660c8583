package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

const paramsCSV = `Parameter,Value,Unit
Exponent of range-energy relation,1.77,
Fraction of energy in nonelastic nuclear interactions,0.6,
Proportionality factor,0.0022,cm MeV^-p
# comment lines are ignored
Density, 1.0, g/cm^3
Charge number,1
`

const hitsDat = `StN EventN FibreHit Edep RealX RealY RealZ Depth Time
1 0 3 0.25 0.1 -0.2 100.0 100.0 0.5
1 1 4 0.30 0.0  0.1 100.0 100.0 0.6

2 0 3 0.40 0.2 0.0 200.0 200.0 1.1
`

func TestReadParameters(t *testing.T) {
	rows, err := ReadParameters(strings.NewReader(paramsCSV))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, domain.ParameterRow{Label: "Exponent of range-energy relation", Value: 1.77}, rows[0])
	assert.Equal(t, domain.ParameterRow{Label: "Proportionality factor", Value: 0.0022, Unit: "cm MeV^-p"}, rows[2])
	assert.Equal(t, domain.ParameterRow{Label: "Density", Value: 1.0, Unit: "g/cm^3"}, rows[3])
	assert.Equal(t, "", rows[4].Unit)
}

func TestReadParameters_BadValue(t *testing.T) {
	_, err := ReadParameters(strings.NewReader("h,v\nDensity,abc,g\n"))
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	_, err = ReadParameters(strings.NewReader("h,v\nDensity\n"))
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestParameterSource_Rows(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bortfeld.csv"), []byte(paramsCSV), 0o644))

	src := NewParameterSource(dir)
	rows, err := src.Rows(context.Background(), "bortfeld.csv")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	_, err = src.Rows(context.Background(), "missing.csv")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestReadHits(t *testing.T) {
	hits, err := ReadHits(context.Background(), strings.NewReader(hitsDat))
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, &domain.Hit{
		Station: 1, Event: 1, Fibre: 4,
		EnergyDeposit: 0.30, X: 0.0, Y: 0.1, Z: 100, Depth: 100, Time: 0.6,
	}, hits[1])
	assert.Equal(t, 2, hits[2].Station)
}

func TestReadHits_WrongColumnCount(t *testing.T) {
	_, err := ReadHits(context.Background(), strings.NewReader("header\n1 2 3 4\n"))
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestHitSource_Hits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hits.dat"), []byte(hitsDat), 0o644))

	src := NewHitSource(dir)
	hits, err := src.Hits(context.Background(), "hits.dat")
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	_, err = src.Hits(context.Background(), "nope.dat")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
