package extractors

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/miradorstack/mirador-resolver/internal/metrics"
	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Context keys stamped on records produced by the tailer.
const (
	ContextSource  = "source"
	ContextLogPath = "log_path"

	sourceServerLog = "server_log"
)

// Intake receives each classified record.
type Intake func(ctx context.Context, rec models.ErrorRecord)

// Tailer follows database server error logs and hands classified lines to an Intake.
type Tailer struct {
	logger *slog.Logger
	intake Intake

	mu      sync.Mutex
	offsets map[string]int64
	partial map[string][]byte
}

// NewTailer constructs a tailer for the given files. Paths are cleaned to
// absolute form so they match fsnotify event names.
func NewTailer(logger *slog.Logger, paths []string, intake Intake) (*Tailer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if intake == nil {
		return nil, errors.New("tailer: intake is required")
	}
	t := &Tailer{
		logger:  logger,
		intake:  intake,
		offsets: make(map[string]int64, len(paths)),
		partial: make(map[string][]byte, len(paths)),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve log path %s: %w", p, err)
		}
		t.offsets[abs] = 0
	}
	return t, nil
}

// Paths returns the files being followed.
func (t *Tailer) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.offsets))
	for p := range t.offsets {
		out = append(out, p)
	}
	return out
}

// Run watches until ctx is cancelled. Existing content is skipped; only bytes
// appended after Run starts are read.
func (t *Tailer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create log watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]struct{})
	for _, path := range t.Paths() {
		t.seekEnd(path)
		dirs[filepath.Dir(path)] = struct{}{}
	}
	// Parent directories are watched so rotated or late-created files are picked up.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	t.logger.Info("log tailer started", "files", len(t.offsets))

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("log tailer stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			t.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("log watcher error", "error", err)
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if !t.tracks(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		if _, err := t.ReadAppended(ctx, path); err != nil {
			t.logger.Warn("read log file failed", "path", path, "error", err)
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		t.reset(path)
	}
}

// ReadAppended reads complete lines written to path since the last read and
// returns how many of them classified as errors. A file shorter than the
// recorded offset is treated as truncated and read from the start.
func (t *Tailer) ReadAppended(ctx context.Context, path string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	offset, ok := t.offsets[path]
	if !ok {
		return 0, fmt.Errorf("path %s is not tailed", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.offsets[path] = 0
			delete(t.partial, path)
			return 0, nil
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < offset {
		t.logger.Info("log file truncated", "path", path)
		offset = 0
		delete(t.partial, path)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	classified := 0
	for {
		chunk, err := reader.ReadBytes('\n')
		offset += int64(len(chunk))
		if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
			line := append(t.partial[path], chunk...)
			delete(t.partial, path)
			if t.emit(ctx, path, string(bytes.TrimRight(line, "\r\n"))) {
				classified++
			}
		} else if len(chunk) > 0 {
			t.partial[path] = append(t.partial[path], chunk...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.offsets[path] = offset
			return classified, fmt.Errorf("read %s: %w", path, err)
		}
	}
	t.offsets[path] = offset
	return classified, nil
}

func (t *Tailer) emit(ctx context.Context, path, line string) bool {
	rec, ok := ParseLogLine(line)
	metrics.ObserveIntakeLine(ok)
	if !ok {
		return false
	}
	rec.Context = map[string]string{
		ContextSource:  sourceServerLog,
		ContextLogPath: path,
	}
	t.logger.Debug("error detected in log", "path", path, "error_type", rec.Type)
	t.intake(ctx, rec)
	return true
}

func (t *Tailer) tracks(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.offsets[path]
	return ok
}

func (t *Tailer) seekEnd(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, err := os.Stat(path)
	if err != nil {
		t.offsets[path] = 0
		return
	}
	t.offsets[path] = info.Size()
	delete(t.partial, path)
}

func (t *Tailer) reset(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offsets[path] = 0
	delete(t.partial, path)
}
