package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/TylerHight/test-automation-playground/assertion"
	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/driver"
	"github.com/TylerHight/test-automation-playground/page"
	"github.com/TylerHight/test-automation-playground/report"
)

// ErrNoWorker is returned by WorkerFrom for a context that did not pass
// through the before-scenario hook.
var ErrNoWorker = errors.New("no worker in context; is the scenario hook registered?")

// Worker is the state of the scenario a single goroutine is executing. It is
// never shared between scenarios.
type Worker struct {
	Config  *config.Config
	Slot    *driver.Slot
	Tracker *report.Tracker
	Assert  *assertion.Asserter

	started time.Time
}

// Timeout is the explicit wait page objects use.
func (w *Worker) Timeout() time.Duration {
	return w.Config.ExplicitWait
}

// PageOptions returns the page options derived from the configuration.
func (w *Worker) PageOptions() []page.Option {
	return []page.Option{page.WithHighlight(w.Config.Highlight)}
}

type workerKey struct{}

// WithWorker returns a copy of ctx carrying w.
func WithWorker(ctx context.Context, w *Worker) context.Context {
	return context.WithValue(ctx, workerKey{}, w)
}

// WorkerFrom returns the worker stored in ctx.
func WorkerFrom(ctx context.Context) (*Worker, error) {
	w, ok := ctx.Value(workerKey{}).(*Worker)
	if !ok || w == nil {
		return nil, ErrNoWorker
	}
	return w, nil
}
