package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/rickgao/tpwatch/internal/model"
	"github.com/rickgao/tpwatch/internal/trigger"
)

// JSONLog appends one JSON record per line to a file.
type JSONLog struct {
	path    string
	builder *Builder
	logger  *slog.Logger

	mu sync.Mutex
}

// NewJSONLog creates a JSONLog. The file is created on first write.
func NewJSONLog(path string, builder *Builder, logger *slog.Logger) *JSONLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLog{
		path:    path,
		builder: builder,
		logger:  logger,
	}
}

// Path returns the log file path.
func (l *JSONLog) Path() string { return l.path }

// Callback returns a callback recording under watch.
func (l *JSONLog) Callback(watch string) trigger.Callback {
	return func(ctx context.Context, data []model.Entity) error {
		rec, err := l.builder.Build(ctx, watch, data)
		if err != nil {
			l.logger.Warn("item names unavailable", "watch", watch, "err", err)
		}
		return l.Append(rec)
	}
}

// Append writes rec as a single line.
func (l *JSONLog) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return f.Close()
}
