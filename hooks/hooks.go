// Package hooks binds the framework's lifecycle objects to godog.
//
// Every scenario runs on its own Worker: a driver slot, a report tracker and
// an asserter created by the before-scenario hook and carried in the
// scenario context. Step definitions retrieve it with WorkerFrom. The
// after-scenario hook records the outcome, capturing a screenshot of failed
// scenarios before the session is quit.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang/glog"

	"github.com/TylerHight/test-automation-playground/assertion"
	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/driver"
	"github.com/TylerHight/test-automation-playground/internal/netlog"
	"github.com/TylerHight/test-automation-playground/metrics"
	"github.com/TylerHight/test-automation-playground/report"
	"github.com/TylerHight/test-automation-playground/screenshot"
)

// BrowserlessTag marks scenarios that do not need a browser. Their driver
// slot stays empty unless a step asks for a session.
const BrowserlessTag = "@api"

// Publisher uploads a directory of artifacts.
type Publisher interface {
	UploadDir(ctx context.Context, dir, prefix string) ([]string, error)
}

// Env holds the process-wide lifecycle objects shared by every worker.
type Env struct {
	Config   *config.Config
	Drivers  *driver.Manager
	Report   *report.Sink
	Capturer *screenshot.Capturer
	// Metrics and Publisher are optional.
	Metrics   *metrics.Metrics
	Publisher Publisher
	// Summary receives the console summary table at suite end; nil skips it.
	Summary io.Writer
}

// InitializeTestSuite registers the suite hooks.
func (e *Env) InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(e.BeforeSuite)
	ctx.AfterSuite(e.AfterSuite)
}

// InitializeScenario registers the scenario and step hooks.
func (e *Env) InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(e.Before)
	ctx.StepContext().After(e.AfterStep)
	ctx.After(e.After)
}

// BeforeSuite records the environment in the report.
func (e *Env) BeforeSuite() {
	glog.Info("Initializing test suite reports")
	e.Report.SetSystemInfo("Browser", string(e.Drivers.Browser()))
	e.Report.SetSystemInfo("Base URL", e.Config.BaseURL)
	e.Report.SetSystemInfo("Headless", fmt.Sprint(e.Config.Headless))
	grid := e.Config.Grid
	if e.Config.RemoteURL != "" {
		grid = e.Config.RemoteURL
	}
	e.Report.SetSystemInfo("Grid", grid)
}

// AfterSuite writes the report and metrics gathered so far. The rest of
// the finalization is left to Finish, which the owner of e calls once after
// its last suite so that one report covers every suite of a run.
func (e *Env) AfterSuite() {
	glog.Info("Flushing test suite reports")
	if err := e.Checkpoint(); err != nil {
		glog.Errorf("Flushing test suite reports: %v", err)
	}
}

// Checkpoint flushes the report and writes the metrics textfile. Both files
// are rewritten in full, so it may run after every suite.
func (e *Env) Checkpoint() error {
	var errs []error
	if err := e.Report.Flush(); err != nil {
		errs = append(errs, err)
	}
	if e.Metrics != nil && e.Config.MetricsTextfile != "" {
		if err := e.Metrics.WriteTextfile(e.Config.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Finish checkpoints the run, prints the summary, publishes artifacts and
// closes the driver manager. Every step is attempted even if an earlier one
// fails.
func (e *Env) Finish(ctx context.Context) error {
	var errs []error
	if err := e.Checkpoint(); err != nil {
		errs = append(errs, err)
	}
	if e.Summary != nil {
		e.Report.Summary(e.Summary)
	}
	if e.Publisher != nil {
		if err := e.publish(ctx); err != nil {
			errs = append(errs, err)
		}
		if c, ok := e.Publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := e.Drivers.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing drivers: %w", err))
	}
	return errors.Join(errs...)
}

func (e *Env) publish(ctx context.Context) error {
	for _, dir := range []string{e.Config.ReportsPath, e.Config.ScreenshotsPath} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		names, err := e.Publisher.UploadDir(ctx, dir, path.Join(e.Report.RunID(), filepath.Base(dir)))
		if err != nil {
			return fmt.Errorf("publishing %s: %w", dir, err)
		}
		glog.Infof("Published %d files from %s", len(names), dir)
	}
	return nil
}

// NewWorker returns a fresh worker bound to e.
func (e *Env) NewWorker() *Worker {
	tr := e.Report.NewTracker()
	var opts []assertion.Option
	if e.Metrics != nil {
		opts = append(opts, assertion.WithObserver(e.Metrics.RecordAssertion))
	}
	return &Worker{
		Config:  e.Config,
		Slot:    e.Drivers.NewSlot(),
		Tracker: tr,
		Assert:  assertion.New(tr, opts...),
		started: time.Now(),
	}
}

func tagNames(sc *godog.Scenario) []string {
	tags := make([]string, 0, len(sc.Tags))
	for _, t := range sc.Tags {
		tags = append(tags, t.Name)
	}
	return tags
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// describe renders the scenario outline shown in the report.
func describe(sc *godog.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Defined in `%s`.\n\n", sc.Uri)
	for i, st := range sc.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, st.Text)
	}
	return b.String()
}

// Before creates the scenario's worker and report node and opens its
// browser session.
func (e *Env) Before(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	glog.Infof("Starting scenario: %s", sc.Name)
	w := e.NewWorker()
	tags := tagNames(sc)
	w.Tracker.CreateTest(sc.Name, sc.Uri, tags)
	w.Tracker.SetDescription(describe(sc))
	ctx = WithWorker(ctx, w)

	if hasTag(tags, BrowserlessTag) {
		return ctx, nil
	}
	if err := w.Slot.Init(); err != nil {
		w.Tracker.Fail(fmt.Sprintf("Driver initialization failed: %v", err))
		return ctx, err
	}
	return ctx, nil
}

// AfterStep logs the step to the report and counts it.
func (e *Env) AfterStep(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
	s := report.StepStatus(status.String())
	if e.Metrics != nil {
		e.Metrics.RecordStep(string(s))
	}
	w, werr := WorkerFrom(ctx)
	if werr != nil {
		return ctx, nil
	}
	if e.Config.Cucumber.StepLogging {
		w.Tracker.LogStep(st.Text, status.String())
	}
	// Assertion failures have been reported by the asserter already.
	var f *assertion.Failure
	if err != nil && !errors.As(err, &f) {
		w.Tracker.Fail(err.Error())
	}
	return ctx, nil
}

// After records the scenario result and quits its session. The screenshot of
// a failed scenario is taken first, while the session is still open.
func (e *Env) After(ctx context.Context, sc *godog.Scenario, scErr error) (context.Context, error) {
	w, err := WorkerFrom(ctx)
	if err != nil {
		glog.Errorf("After scenario %q: %v", sc.Name, err)
		return ctx, nil
	}
	defer w.Tracker.Remove()

	feature := ""
	if n := w.Tracker.Test(); n != nil {
		feature = n.Feature()
	}

	if scErr != nil {
		glog.Errorf("Scenario failed: %s: %v", sc.Name, scErr)
		e.recordFailure(w, sc.Name, feature)
	} else {
		glog.Infof("Scenario passed: %s", sc.Name)
		w.Tracker.Pass("Scenario passed: " + sc.Name)
	}

	if err := w.Slot.Quit(); err != nil {
		glog.Warningf("Tearing down scenario %q: %v", sc.Name, err)
	}
	if e.Metrics != nil {
		e.Metrics.RecordScenario(feature, scErr == nil, time.Since(w.started))
	}
	return ctx, nil
}

func (e *Env) recordFailure(w *Worker, scenario, feature string) {
	wd := w.Slot.Driver()
	if wd != nil && e.Config.NetworkLog {
		failures, err := netlog.Collect(wd)
		if err != nil {
			glog.Warningf("Collecting network log: %v", err)
		}
		for _, f := range failures {
			w.Tracker.Info("Network: " + f.String())
		}
	}

	dir := ""
	if e.Config.Cucumber.OrganizeByFeature {
		dir = feature
	}
	shot, ok := e.Capturer.Take(wd, scenario, dir)
	if e.Metrics != nil {
		e.Metrics.RecordScreenshot(ok)
	}
	w.Tracker.Fail("Scenario failed: " + scenario)
	if ok {
		w.Tracker.Attach(shot)
	}
}
