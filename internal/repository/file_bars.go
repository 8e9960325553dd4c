package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// FileBarStore reads and writes bars as a JSON array file.
// Load also accepts JSON lines, the live store format.
type FileBarStore struct {
	path string
}

func NewFileBarStore(path string) *FileBarStore {
	return &FileBarStore{path: path}
}

var (
	_ domrepo.BarLoader = (*FileBarStore)(nil)
	_ domrepo.BarWriter = (*FileBarStore)(nil)
)

// Load returns the bars of the given tickers; no tickers means all.
func (s *FileBarStore) Load(_ context.Context, tickers []string) ([]models.Bar, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	bars, err := DecodeBars(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	bars = FilterTickers(bars, tickers)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", s.path, domrepo.ErrNoBars)
	}
	return bars, nil
}

// WriteBars merges bars into the file, replacing bars with the same (ticker, datetime).
func (s *FileBarStore) WriteBars(ctx context.Context, bars []models.Bar) error {
	existing, err := s.Load(ctx, nil)
	if err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, domrepo.ErrNoBars) {
		return err
	}
	merged := MergeBars(existing, bars)
	data, err := json.MarshalIndent(merged, "", "    ")
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}
	return WriteFileAtomic(s.path, data)
}

// DecodeBars parses a JSON array of bars, or one bar per line.
func DecodeBars(data []byte) ([]models.Bar, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var bars []models.Bar
		if err := json.Unmarshal(trimmed, &bars); err != nil {
			return nil, err
		}
		return bars, nil
	}

	var bars []models.Bar
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var b models.Bar
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	return bars, sc.Err()
}

// FilterTickers keeps bars whose ticker is listed; an empty list keeps everything.
func FilterTickers(bars []models.Bar, tickers []string) []models.Bar {
	if len(tickers) == 0 {
		return bars
	}
	want := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		want[t] = struct{}{}
	}
	out := bars[:0:0]
	for _, b := range bars {
		if _, ok := want[b.Ticker]; ok {
			out = append(out, b)
		}
	}
	return out
}

// MergeBars overlays next on prev by Key and returns the result sorted by ticker then time.
func MergeBars(prev, next []models.Bar) []models.Bar {
	idx := make(map[string]int, len(prev)+len(next))
	out := make([]models.Bar, 0, len(prev)+len(next))
	for _, set := range [][]models.Bar{prev, next} {
		for _, b := range set {
			if i, ok := idx[b.Key()]; ok {
				out[i] = b
				continue
			}
			idx[b.Key()] = len(out)
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Stamp() < out[j].Stamp()
	})
	return out
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
