package capture

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/core-tools/hsu-ocdguard/pkg/pump"
)

// Writer records daemon output lines somewhere durable
type Writer interface {
	Write(line pump.Line) error
	Close() error
}

// Discard is a Writer that drops everything
var Discard Writer = discard{}

type discard struct{}

func (discard) Write(pump.Line) error { return nil }
func (discard) Close() error          { return nil }

// fileWriter appends lines to a file, creating directories on first write
type fileWriter struct {
	path   string
	now    func() time.Time
	file   *os.File
	writer *bufio.Writer
	mutex  sync.Mutex
}

// NewFileWriter returns a Writer appending to path. An empty path yields Discard.
func NewFileWriter(path string) Writer {
	if path == "" {
		return Discard
	}
	return &fileWriter{
		path: path,
		now:  time.Now,
	}
}

func (f *fileWriter) Write(line pump.Line) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if err := f.ensureFileOpen(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(f.writer, "[%s][%s] %s\n",
		f.now().Format(time.RFC3339), line.Stream, line.Text); err != nil {
		return fmt.Errorf("failed to write capture line: %w", err)
	}

	// Flushed per line so the file is usable while the daemon hangs
	return f.writer.Flush()
}

func (f *fileWriter) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file == nil {
		return nil
	}
	flushErr := f.writer.Flush()
	closeErr := f.file.Close()
	f.file = nil
	f.writer = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (f *fileWriter) ensureFileOpen() error {
	if f.file != nil {
		return nil
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open capture file %s: %w", f.path, err)
	}

	f.file = file
	f.writer = bufio.NewWriter(file)
	return nil
}
