package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoExport is returned when no previous export can be found.
var ErrNoExport = errors.New("no export found")

const exportPrefix = "export_"

// ExportDir returns the folder a run started at now writes into.
func (o Output) ExportDir(now time.Time) string {
	if !o.Timestamped {
		return o.Dir
	}
	return filepath.Join(o.Dir, exportPrefix+now.Format("20060102_150405"))
}

// StoreDSN returns the table-store DSN for an export folder: the configured
// DSN, or the default database file inside dir for file-backed kinds.
func (s Store) StoreDSN(dir string) string {
	if s.DSN != "" {
		return s.DSN
	}
	switch s.Kind {
	case "sqlite", "duckdb", "":
		return filepath.Join(dir, StoreFileName)
	}
	return ""
}

// LatestExport returns the folder under dir named export_* that contains
// name and was modified last.
func LatestExport(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoExport, dir)
		}
		return "", err
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), exportPrefix) {
			continue
		}
		folder := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || fi.ModTime().After(bestMod) {
			best, bestMod = folder, fi.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w in %s", ErrNoExport, dir)
	}
	return filepath.Join(best, name), nil
}
