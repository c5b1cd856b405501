package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rickgao/tpwatch/internal/model"
	"github.com/rickgao/tpwatch/internal/trigger"
)

// Console prints records as readable text.
type Console struct {
	builder *Builder
	logger  *slog.Logger

	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, builder *Builder, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		builder: builder,
		logger:  logger,
		w:       w,
	}
}

// Callback returns a callback labelling its output with watch.
func (c *Console) Callback(watch string) trigger.Callback {
	return func(ctx context.Context, data []model.Entity) error {
		rec, err := c.builder.Build(ctx, watch, data)
		if err != nil {
			c.logger.Warn("item names unavailable", "watch", watch, "err", err)
		}
		return c.Write(rec)
	}
}

// Write prints rec.
func (c *Console) Write(rec Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d found\n", rec.Time.Format("2006-01-02 15:04:05"), rec.Watch, len(rec.Entities))
	for _, e := range rec.Entities {
		name := e.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(&b, "  %-8d %s %s\n", e.ID, e.Code, name)
		if l := e.Listing; l != nil {
			fmt.Fprintf(&b, "           buy %d x%d  sell %d x%d\n", l.MaxBuy, l.BuyVolume, l.MinSell, l.SellVolume)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, b.String())
	return err
}
