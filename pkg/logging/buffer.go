package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is a captured log record.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   map[string]any
}

// LogBuffer keeps the most recent log entries in a ring.
type LogBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	size    int
	next    int
	full    bool
}

// NewLogBuffer creates a buffer holding at most size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Add appends an entry, overwriting the oldest when full.
func (b *LogBuffer) Add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % b.size
	if b.next == 0 {
		b.full = true
	}
}

// GetRecent returns up to n entries, oldest first.
func (b *LogBuffer) GetRecent(n int) []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := b.next
	if b.full {
		count = b.size
	}
	if n > count {
		n = count
	}

	result := make([]LogEntry, 0, n)
	start := (b.next - n + b.size) % b.size
	for i := 0; i < n; i++ {
		result = append(result, b.entries[(start+i)%b.size])
	}
	return result
}

// BufferHandler is a slog.Handler that records into a LogBuffer.
type BufferHandler struct {
	buffer *LogBuffer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	group  string
}

// NewBufferHandler creates a handler writing to buffer. opts may be nil.
func NewBufferHandler(buffer *LogBuffer, opts *slog.HandlerOptions) *BufferHandler {
	h := &BufferHandler{buffer: buffer}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelDebug
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})
	h.buffer.Add(LogEntry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &next
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}

func (h *BufferHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}
