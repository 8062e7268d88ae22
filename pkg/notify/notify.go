// Package notify carries user-facing notices out of background work.
// Sync failures happen after the HTTP response has already been written,
// so the engines push notices into a sink and clients drain them later.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/akenterprises/storefront/pkg/logger"
)

// Severity classifies a notice.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notice is a single user-facing message.
type Notice struct {
	Severity Severity  `json:"severity"`
	Source   string    `json:"source"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Sink receives notices. Implementations must be safe for concurrent use.
type Sink interface {
	Push(ctx context.Context, n Notice)
}

// LoggerSink writes every notice through the service logger.
type LoggerSink struct {
	Log *logger.Logger
}

func (s LoggerSink) Push(ctx context.Context, n Notice) {
	if s.Log == nil {
		return
	}
	ctx = s.Log.WithFields(ctx, map[string]any{
		"source":   n.Source,
		"severity": string(n.Severity),
	})
	if n.Severity == SeverityError {
		s.Log.Error(ctx, n.Message, nil)
		return
	}
	s.Log.Info(ctx, n.Message)
}

// Buffer keeps the most recent notices in memory until a client drains
// them. When full, the oldest notice is dropped.
type Buffer struct {
	mu      sync.Mutex
	notices []Notice
	cap     int
}

// NewBuffer returns a Buffer holding at most capacity notices.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 64
	}
	return &Buffer{cap: capacity}
}

func (b *Buffer) Push(_ context.Context, n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	if len(b.notices) >= b.cap {
		b.notices = b.notices[1:]
	}
	b.notices = append(b.notices, n)
}

// Drain returns all buffered notices, oldest first, and empties the buffer.
func (b *Buffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

// Multi fans a notice out to several sinks.
type Multi []Sink

func (m Multi) Push(ctx context.Context, n Notice) {
	for _, s := range m {
		s.Push(ctx, n)
	}
}

// Error is a convenience constructor for an error notice.
func Error(source, message string) Notice {
	return Notice{Severity: SeverityError, Source: source, Message: message, At: time.Now().UTC()}
}

// Info is a convenience constructor for an informational notice.
func Info(source, message string) Notice {
	return Notice{Severity: SeverityInfo, Source: source, Message: message, At: time.Now().UTC()}
}
