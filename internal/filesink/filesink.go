// Package filesink writes one flat-file artifact per exported table. Every
// write fully replaces the previous artifact of the same table atomically.
package filesink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tkexport/internal/tabular"
)

// Format selects the artifact encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts "csv" or "parquet" (case-insensitive); empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("filesink: unknown format %q", s)
}

// Sink writes artifacts into one directory.
type Sink struct {
	dir    string
	format Format
}

// New creates dir when missing and returns a Sink writing format.
func New(dir string, format Format) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("filesink: empty directory")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatCSV
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesink: mkdir %s: %w", dir, err)
	}
	return &Sink{dir: dir, format: format}, nil
}

// Dir returns the artifact directory.
func (s *Sink) Dir() string { return s.dir }

// Path returns the artifact path for table.
func (s *Sink) Path(table string) string {
	return filepath.Join(s.dir, SafeName(table)+"."+string(s.format))
}

// Write replaces table's artifact with buf and returns its path.
func (s *Sink) Write(ctx context.Context, table string, buf *tabular.Buffer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.Path(table)
	var err error
	switch s.format {
	case FormatParquet:
		err = writeParquet(ctx, path, table, buf)
	default:
		err = writeCSV(path, buf)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// SafeName normalizes a table name to NFC and replaces characters that are
// not portable in file names.
func SafeName(table string) string {
	name := norm.NFC.String(strings.TrimSpace(table))
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
}
