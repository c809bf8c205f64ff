package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured structured-log record.
type LogEntry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// Recorder is the console's slog destination: records land in a bounded
// in-memory ring (so the prompt never fights log writes for the terminal)
// and, when a file writer is attached, as JSON lines there too.
type Recorder struct {
	mu       sync.RWMutex
	entries  []LogEntry
	maxSize  int
	level    slog.Level
	fileJSON slog.Handler
	logger   *slog.Logger
}

// NewRecorder builds a Recorder keeping up to bufferSize records at or
// above level. file may be nil.
func NewRecorder(level slog.Level, bufferSize int, file io.Writer) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	r := &Recorder{
		entries: make([]LogEntry, 0, bufferSize),
		maxSize: bufferSize,
		level:   level,
	}
	if file != nil {
		r.fileJSON = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	}
	r.logger = slog.New((*recorderHandler)(r))
	return r
}

// Logger returns the slog.Logger writing into this recorder.
func (r *Recorder) Logger() *slog.Logger { return r.logger }

// Entries returns a copy of the buffered records, oldest first.
func (r *Recorder) Entries() []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Recent returns the newest count records, oldest first.
func (r *Recorder) Recent(count int) []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if count <= 0 || count > len(r.entries) {
		count = len(r.entries)
	}
	out := make([]LogEntry, count)
	copy(out, r.entries[len(r.entries)-count:])
	return out
}

// Clear drops the buffered records.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

// recorderHandler adapts Recorder to slog.Handler.
type recorderHandler Recorder

func (h *recorderHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recorderHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]string)
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()
		return true
	})

	h.mu.Lock()
	h.entries = append(h.entries, LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[1:]
	}
	file := h.fileJSON
	h.mu.Unlock()

	if file != nil && file.Enabled(ctx, record.Level) {
		return file.Handle(ctx, record.Clone())
	}
	return nil
}

func (h *recorderHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// The ring keeps flat records; per-logger attrs fold into each record
	// at Handle time via the caller, so the same handler serves.
	return h
}

func (h *recorderHandler) WithGroup(string) slog.Handler {
	return h
}

// RotatingFileWriter is an io.WriteCloser with size-based rotation: when a
// write would push the current file past the limit, the file rotates to
// <path>.1 (shifting older backups up) before the write lands. Writes are
// never split across files. Safe for concurrent use.
type RotatingFileWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxFiles int
	size     int64
	file     *os.File
}

// NewRotatingFileWriter opens path in append mode, creating parent
// directories as needed. maxSizeMB floors at 1; maxFiles 0 keeps no
// backups (rotation truncates).
func NewRotatingFileWriter(path string, maxSizeMB, maxFiles int) (*RotatingFileWriter, error) {
	if maxSizeMB < 1 {
		maxSizeMB = 1
	}
	if maxFiles < 0 {
		maxFiles = 0
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat log file %s: %w", path, err)
	}
	return &RotatingFileWriter{
		path:     path,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		maxFiles: maxFiles,
		size:     info.Size(),
		file:     f,
	}, nil
}

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate shifts backups .N → .N+1 from the highest down, moves the live
// file to .1 (or removes it when no backups are kept), and reopens fresh.
// Callers hold w.mu.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	backups := w.backupNumbers()
	sort.Sort(sort.Reverse(sort.IntSlice(backups)))
	for _, n := range backups {
		src := w.backupPath(n)
		if n+1 > w.maxFiles {
			_ = os.Remove(src)
			continue
		}
		_ = os.Rename(src, w.backupPath(n+1))
	}
	if w.maxFiles > 0 {
		_ = os.Rename(w.path, w.backupPath(1))
	} else {
		_ = os.Remove(w.path)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *RotatingFileWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

func (w *RotatingFileWriter) backupNumbers() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)
