package automation

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/driver"
	"github.com/TylerHight/test-automation-playground/hooks"
	"github.com/TylerHight/test-automation-playground/internal/publish"
	"github.com/TylerHight/test-automation-playground/metrics"
	"github.com/TylerHight/test-automation-playground/report"
	"github.com/TylerHight/test-automation-playground/runner"
	"github.com/TylerHight/test-automation-playground/screenshot"
	"github.com/TylerHight/test-automation-playground/steps"
)

// ThumbnailWidth is the width of the screenshot thumbnails in the report.
const ThumbnailWidth = 320

// Option configures New.
type Option func(*options)

type options struct {
	driverOpts []driver.Option
	stepOpts   []steps.Option
	summary    io.Writer
	output     io.Writer
	publisher  hooks.Publisher
}

// WithDriverOptions passes opts to the driver manager.
func WithDriverOptions(opts ...driver.Option) Option {
	return func(o *options) { o.driverOpts = append(o.driverOpts, opts...) }
}

// WithStepOptions passes opts to the step definitions.
func WithStepOptions(opts ...steps.Option) Option {
	return func(o *options) { o.stepOpts = append(o.stepOpts, opts...) }
}

// WithSummary sends the end-of-suite summary table to w instead of standard
// output. A nil w disables it.
func WithSummary(w io.Writer) Option {
	return func(o *options) { o.summary = w }
}

// WithOutput sends the console output of the suites to w, without colors,
// instead of standard output.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithPublisher replaces the Cloud Storage publisher configured by
// report.bucket.
func WithPublisher(p hooks.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New builds the lifecycle objects of a run from cfg. Every session opened
// by the returned driver manager is counted in its metrics.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*hooks.Env, error) {
	return build(ctx, cfg, collect(opts))
}

func collect(opts []Option) options {
	o := options{summary: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func build(ctx context.Context, cfg *config.Config, o options) (*hooks.Env, error) {
	m := metrics.New()
	dopts := append([]driver.Option{driver.WithSessionObserver(m.RecordSession)}, o.driverOpts...)
	drivers, err := driver.NewManager(cfg, dopts...)
	if err != nil {
		return nil, fmt.Errorf("creating driver manager: %w", err)
	}

	env := &hooks.Env{
		Config:  cfg,
		Drivers: drivers,
		Report: report.New(report.Options{
			Dir:   cfg.ReportsPath,
			Title: cfg.Report.Title,
			Name:  cfg.Report.Name,
		}),
		Capturer: screenshot.New(cfg.ScreenshotsPath,
			screenshot.WithCaption(true),
			screenshot.WithThumbnail(ThumbnailWidth)),
		Metrics:   m,
		Publisher: o.publisher,
		Summary:   o.summary,
	}
	if env.Publisher == nil && cfg.Report.Bucket != "" {
		p, err := publish.New(ctx, cfg.Report.Bucket)
		if err != nil {
			drivers.Close()
			return nil, err
		}
		env.Publisher = p
	}
	glog.V(1).Infof("Run %s: browser %s, base URL %s", env.Report.RunID(), drivers.Browser(), cfg.BaseURL)
	return env, nil
}

// Run executes suite against a fresh set of lifecycle objects and returns
// godog's exit status. The objects are released when the suite ends.
func Run(ctx context.Context, cfg *config.Config, suite runner.Suite, opts ...Option) (int, error) {
	statuses, err := RunAll(ctx, cfg, []runner.Suite{suite}, opts...)
	if len(statuses) == 0 {
		return 1, err
	}
	return statuses[0], err
}

// RunAll executes suites one after another against a single set of
// lifecycle objects, so the report, metrics and summary cover all of them.
// It returns godog's exit status for each suite, in order. The objects are
// released after the last suite.
func RunAll(ctx context.Context, cfg *config.Config, suites []runner.Suite, opts ...Option) ([]int, error) {
	o := collect(opts)
	env, err := build(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	statuses := make([]int, len(suites))
	for i, s := range suites {
		if o.output != nil {
			statuses[i] = s.RunTo(o.output, env, o.stepOpts...)
		} else {
			statuses[i] = s.Run(env, o.stepOpts...)
		}
	}
	if err := env.Finish(ctx); err != nil {
		return statuses, fmt.Errorf("finishing run %s: %w", env.Report.RunID(), err)
	}
	return statuses, nil
}
