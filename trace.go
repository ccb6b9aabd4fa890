package corexy

import (
	"encoding/csv"
	"fmt"
	"os"
)

// TraceConfig configures optional recording of a drawing's dispatch, for
// offline plotting/debugging.
type TraceConfig struct {
	Path string
}

// IsUseless reports whether this config doesn't actually record anything.
func (c TraceConfig) IsUseless() bool {
	return c.Path == ""
}

// Trace records every sampled Instant of a dispatch to a CSV file.
type Trace struct {
	f *os.File
	w *csv.Writer
}

// NewTrace creates path and writes the CSV header.
func NewTrace(path string) (*Trace, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("corexy: creating trace file %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"t", "x", "y", "cumulative_distance", "velocity", "acceleration"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("corexy: writing trace header: %w", err)
	}
	return &Trace{f: f, w: w}, nil
}

// RecordInstant appends one sampled Instant as a CSV row.
func (t *Trace) RecordInstant(i Instant) error {
	row := []string{
		fmt.Sprintf("%.6f", i.T),
		fmt.Sprintf("%.6f", i.Position.X),
		fmt.Sprintf("%.6f", i.Position.Y),
		fmt.Sprintf("%.6f", i.CumulativeDistance),
		fmt.Sprintf("%.6f", i.Velocity),
		fmt.Sprintf("%.6f", i.Acceleration),
	}
	return t.w.Write(row)
}

// Close flushes buffered rows and closes the underlying file.
func (t *Trace) Close() error {
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}
