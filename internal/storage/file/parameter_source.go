// Package file reads parameter tables and hit datasets from flat files.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// ParameterSource reads parameter sets from CSV files under a root
// directory. The set name is the file path relative to the root.
//
// The first line is a header. Each following record is label,value[,unit].
type ParameterSource struct {
	root string
}

// NewParameterSource creates a source rooted at dir. An empty dir resolves
// set names against the working directory.
func NewParameterSource(dir string) *ParameterSource {
	return &ParameterSource{root: dir}
}

// Compile-time interface check.
var _ storage.ParameterSource = (*ParameterSource)(nil)

// Rows reads the parameter set. Returns ErrNotFound if the file is missing.
func (s *ParameterSource) Rows(_ context.Context, set string) ([]domain.ParameterRow, error) {
	f, err := os.Open(resolve(s.root, set))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("parameter set %q: %w", set, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("open parameter set %q: %w", set, err)
	}
	defer f.Close()

	return ReadParameters(f)
}

// ReadParameters decodes a parameter CSV stream.
func ReadParameters(r io.Reader) ([]domain.ParameterRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rows []domain.ParameterRow
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parameters: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(rec) < 2 {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: need label and value: %w", line, storage.ErrInvalidInput)
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			line, _ := cr.FieldPos(1)
			return nil, fmt.Errorf("line %d: value %q: %w", line, rec[1], storage.ErrInvalidInput)
		}
		row := domain.ParameterRow{Label: strings.TrimSpace(rec[0]), Value: v}
		if len(rec) > 2 {
			row.Unit = strings.TrimSpace(rec[2])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func resolve(root, name string) string {
	if root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, name)
}
