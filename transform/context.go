package transform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// TransformContext is the state shared by the strategies of one run.
// Strategies may stash values for later strategies with Put.
type TransformContext struct {
	ctx    context.Context
	runID  string
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]any
}

// NewTransformContext creates a context with a fresh run id. A nil logger
// falls back to slog.Default.
func NewTransformContext(ctx context.Context, logger *slog.Logger) *TransformContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	return &TransformContext{
		ctx:    ctx,
		runID:  runID,
		logger: logger.With("run_id", runID),
		values: map[string]any{},
	}
}

// Context returns the context the run was started with.
func (c *TransformContext) Context() context.Context { return c.ctx }

// RunID identifies the run in logs and spans.
func (c *TransformContext) RunID() string { return c.runID }

// Logger returns the run logger, already tagged with the run id.
func (c *TransformContext) Logger() *slog.Logger { return c.logger }

func (c *TransformContext) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *TransformContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}
