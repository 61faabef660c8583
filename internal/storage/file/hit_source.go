package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// hitColumns is the number of columns of a hits file:
// station, event, fibre, Edep, x, y, z, depth, time.
const hitColumns = 9

// HitSource reads hit datasets from whitespace-delimited files under a
// root directory. The first line of each file is a header.
type HitSource struct {
	root string
}

// NewHitSource creates a source rooted at dir.
func NewHitSource(dir string) *HitSource {
	return &HitSource{root: dir}
}

// Compile-time interface check.
var _ storage.HitSource = (*HitSource)(nil)

// Hits reads the dataset file. Returns ErrNotFound if the file is missing.
func (s *HitSource) Hits(ctx context.Context, dataset string) ([]*domain.Hit, error) {
	f, err := os.Open(resolve(s.root, dataset))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dataset %q: %w", dataset, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("open dataset %q: %w", dataset, err)
	}
	defer f.Close()

	return ReadHits(ctx, f)
}

// ReadHits decodes a hits stream. Blank lines are skipped.
func ReadHits(ctx context.Context, r io.Reader) ([]*domain.Hit, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var hits []*domain.Hit
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != hitColumns {
			return nil, fmt.Errorf("line %d: %d columns, want %d: %w", line, len(fields), hitColumns, storage.ErrInvalidInput)
		}
		h, err := parseHit(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		hits = append(hits, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read hits: %w", err)
	}
	return hits, nil
}

func parseHit(f []string) (*domain.Hit, error) {
	ints := make([]int, 3)
	for i := range ints {
		// integer columns are sometimes written as floats
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return nil, fmt.Errorf("column %d %q: %w", i+1, f[i], storage.ErrInvalidInput)
		}
		ints[i] = int(v)
	}
	floats := make([]float64, hitColumns-3)
	for i := range floats {
		v, err := strconv.ParseFloat(f[i+3], 64)
		if err != nil {
			return nil, fmt.Errorf("column %d %q: %w", i+4, f[i+3], storage.ErrInvalidInput)
		}
		floats[i] = v
	}

	return &domain.Hit{
		Station:       ints[0],
		Event:         ints[1],
		Fibre:         ints[2],
		EnergyDeposit: floats[0],
		X:             floats[1],
		Y:             floats[2],
		Z:             floats[3],
		Depth:         floats[4],
		Time:          floats[5],
	}, nil
}
