// Package logging sends the standard logger to stdout and a size-capped file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const DefaultMaxSize = 2 * 1024 * 1024 // 2MB

// RotatingWriter appends to a log file. Once the file passes maxSize it is
// moved to "<path>.1", replacing any older backup, and a fresh file is started.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Setup tees the standard logger to stdout and a rotating file at logPath.
// A maxSize of zero or less uses DefaultMaxSize.
func Setup(logPath string, maxSize int64) (*RotatingWriter, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	rw, err := NewRotatingWriter(logPath, maxSize)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

// NewRotatingWriter opens logPath for appending. A file already past maxSize
// is rotated first, so the previous run's tail survives in the backup.
func NewRotatingWriter(logPath string, maxSize int64) (*RotatingWriter, error) {
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxSize {
		if err := os.Rename(logPath, backupPath(logPath)); err != nil {
			return nil, fmt.Errorf("rotate %s: %w", logPath, err)
		}
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	var size int64
	if info, _ := f.Stat(); info != nil {
		size = info.Size()
	}

	return &RotatingWriter{
		file:    f,
		path:    logPath,
		size:    size,
		maxSize: maxSize,
	}, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, err
	}

	if w.size > w.maxSize {
		if err := w.rotate(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// rotate moves the file to its backup and starts a fresh one. If the move
// fails the current file is kept and the next attempt comes after another
// maxSize bytes.
func (w *RotatingWriter) rotate() error {
	w.file.Close()

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	renameErr := os.Rename(w.path, backupPath(w.path))
	if renameErr != nil {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(w.path, flag, 0644)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", w.path, err)
	}
	w.file = f
	w.size = 0

	if renameErr != nil {
		return fmt.Errorf("rotate %s: %w", w.path, renameErr)
	}
	return nil
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func backupPath(path string) string {
	return path + ".1"
}
