package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

// TrainingFile returns the labeled data file for an activity: <dir>/train-<label>.csv.
func TrainingFile(dir, label string) string {
	return filepath.Join(dir, "train-"+label+".csv")
}

// FileSink appends one CSV line per sample to a file opened in append mode.
// Each line is flushed as it is written; the handle stays open until Close.
type FileSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewFileSink opens (or creates) path for appending, creating its directory if needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return &FileSink{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Path is the file being written.
func (f *FileSink) Path() string {
	return f.path
}

func (f *FileSink) Write(_ context.Context, s imu.CombinedSample) error {
	if err := f.writer.Write(s.Fields()); err != nil {
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	// Flush every row so a failed append is reported for this sample.
	f.writer.Flush()
	if err := f.writer.Error(); err != nil {
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (f *FileSink) Close() error {
	f.writer.Flush()
	flushErr := f.writer.Error()
	closeErr := f.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", f.path, flushErr)
	}
	return closeErr
}
