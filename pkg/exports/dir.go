// Package exports writes generated export files into an output directory.
//
// Export file names carry the date the data was gathered, so a file that
// already exists holds the same data and is not written again unless asked.
package exports

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"imgurstats/pkg/report"
)

// ErrExists is returned by Write when the export is already on disk.
var ErrExists = errors.New("export already exists")

const exportExt = ".csv"

// Dir handles export files of one output directory
type Dir struct {
	outputDir string
	written   map[string]bool
	mu        sync.RWMutex
}

// NewDir creates the output directory if needed and indexes its exports.
func NewDir(outputDir string) (*Dir, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	d := &Dir{
		outputDir: outputDir,
		written:   make(map[string]bool),
	}
	if err := d.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return d, nil
}

func (d *Dir) scanExistingFiles() error {
	entries, err := os.ReadDir(d.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == exportExt {
			d.written[entry.Name()] = true
		}
	}
	return nil
}

// Exists reports whether filename is already in the directory.
func (d *Dir) Exists(filename string) bool {
	d.mu.RLock()
	known := d.written[filename]
	d.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filepath.Join(d.outputDir, filename)); err == nil {
		d.mu.Lock()
		d.written[filename] = true
		d.mu.Unlock()
		return true
	}
	return false
}

// Write stores exp and returns its path. An existing file is kept and
// ErrExists returned unless overwrite is set.
func (d *Dir) Write(exp *report.Export, overwrite bool) (string, error) {
	if exp == nil || exp.Filename == "" || filepath.Base(exp.Filename) != exp.Filename {
		return "", fmt.Errorf("invalid export file name %q", exportName(exp))
	}
	filename := filepath.Join(d.outputDir, exp.Filename)
	if !overwrite && d.Exists(exp.Filename) {
		return filename, ErrExists
	}

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, bytes.NewReader(exp.Data))
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write export data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	d.mu.Lock()
	d.written[exp.Filename] = true
	d.mu.Unlock()
	return filename, nil
}

func exportName(exp *report.Export) string {
	if exp == nil {
		return ""
	}
	return exp.Filename
}

// List returns the export file names of scope sorted by name, which orders
// each kind by date.
func (d *Dir) List(scope string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	prefix := scope + "-"
	names := []string{}
	for name := range d.written {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// OutputDir returns the output directory path
func (d *Dir) OutputDir() string {
	return d.outputDir
}
