// Package validation checks CLI input and output paths before any data is
// read or written.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ibpconv/internal/exporter"
	"ibpconv/internal/table"
)

var (
	ErrNotExist     = errors.New("file does not exist")
	ErrNotRegular   = errors.New("not a regular file")
	ErrLockFile     = errors.New("office lock file")
	ErrSamePath     = errors.New("output would overwrite the input")
	ErrNotWritable  = errors.New("directory is not writable")
	ErrOutputFormat = errors.New("unsupported output extension")
)

// FileValidator checks the files a conversion reads and writes.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInput checks that path is a readable regular file in a format the
// table reader understands. Office "~$" lock files are rejected.
func (v *FileValidator) ValidateInput(path string) error {
	if _, err := table.Format(path); err != nil {
		v.logger.Error("Unsupported input file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return err
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Refusing Office lock file",
			slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrLockFile, path)
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("Input file does not exist",
			slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		v.logger.Error("Input path is not a regular file",
			slog.String("path", path))
		return fmt.Errorf("%w: %s", ErrNotRegular, path)
	}

	// Opening proves readability; Stat alone does not.
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutput checks that out has a .csv or .xlsx extension, differs from
// in and that its directory exists or can be created and is writable.
func (v *FileValidator) ValidateOutput(in, out string) error {
	switch strings.ToLower(filepath.Ext(out)) {
	case exporter.FormatCSV.Extension(), exporter.FormatXLSX.Extension():
	default:
		return fmt.Errorf("%w: %q (want .csv or .xlsx)", ErrOutputFormat, filepath.Ext(out))
	}

	if in != "" {
		absIn, errIn := filepath.Abs(in)
		absOut, errOut := filepath.Abs(out)
		if errIn == nil && errOut == nil && absIn == absOut {
			return fmt.Errorf("%w: %s", ErrSamePath, out)
		}
	}

	return v.ValidateOutputDirectory(filepath.Dir(out))
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".ibpconv-write-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, dir, err)
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
