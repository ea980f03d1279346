package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/tebeka/selenium"

	"github.com/TylerHight/test-automation-playground/assertion"
	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/driver"
	"github.com/TylerHight/test-automation-playground/hooks"
	"github.com/TylerHight/test-automation-playground/internal/webdrivertest"
	"github.com/TylerHight/test-automation-playground/report"
	"github.com/TylerHight/test-automation-playground/screenshot"
)

const baseURL = "http://playground.test"

const homeDoc = `<html><head><title>UI Test Automation Playground</title></head><body>
<div class="container">
  <h1>UI Test Automation Playground</h1>
  <p>The purpose of this website is to provide a platform for sharpening UI test automation skills.</p>
  <div class="row">
    <div class="col-sm"><h3><a href="/dynamicid">Dynamic ID</a></h3></div>
    <div class="col-sm"><h3><a href="/classattr">Class Attribute</a></h3></div>
    <div class="col-sm"><h3><a href="/hiddenlayers">Hidden Layers</a></h3></div>
  </div>
</div>
</body></html>`

const dynamicIDDoc = `<html><head><title>Dynamic ID</title></head><body>
<div class="container">
  <h3>Dynamic ID</h3>
  <button type="button" class="btn btn-primary" id="c0ffee">Button with Dynamic ID</button>
</div>
</body></html>`

func newEnv(t *testing.T, base string, pages map[string]string) *hooks.Env {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.BaseURL = base
	cfg.ExplicitWait = 50 * time.Millisecond
	cfg.Highlight = false
	cfg.ScreenshotsPath = filepath.Join(root, "screenshots")
	cfg.ReportsPath = filepath.Join(root, "reports")

	remote := func(selenium.Capabilities, string) (selenium.WebDriver, error) {
		return webdrivertest.New(pages), nil
	}
	m, err := driver.NewManager(cfg, driver.WithRemote(remote), driver.WithExecutor("http://127.0.0.1:4444/wd/hub"))
	if err != nil {
		t.Fatalf("NewManager() returned error: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return &hooks.Env{
		Config:   cfg,
		Drivers:  m,
		Report:   report.New(report.Options{Dir: cfg.ReportsPath}),
		Capturer: screenshot.New(cfg.ScreenshotsPath),
	}
}

// start runs the before-scenario hook and returns the scenario context.
func start(t *testing.T, e *hooks.Env, tags ...string) (context.Context, *hooks.Worker) {
	t.Helper()
	sc := &godog.Scenario{Id: "1", Uri: "features/homepage.feature", Name: t.Name()}
	for _, tag := range tags {
		sc.Tags = append(sc.Tags, &messages.PickleTag{Name: tag})
	}
	ctx, err := e.Before(context.Background(), sc)
	if err != nil {
		t.Fatalf("Before() returned error: %v", err)
	}
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.After(ctx, sc, nil) })
	return ctx, w
}

func TestHomeSteps(t *testing.T) {
	e := newEnv(t, baseURL, map[string]string{
		baseURL:                homeDoc,
		baseURL + "/dynamicid": dynamicIDDoc,
	})
	ctx, _ := start(t, e)
	s := &homeSteps{}

	for _, step := range []struct {
		desc string
		run  func() error
	}{
		{"navigate", func() error { return s.navigateToHomepage(ctx) }},
		{"view title", s.viewPageTitle},
		{"title correct", func() error { return s.titleDisplayedCorrectly(ctx) }},
		{"title not empty", func() error { return s.titleNotEmpty(ctx) }},
		{"description", func() error { return s.descriptionMentions(ctx, "UI test  automation") }},
		{"check links", s.checkTestLinks},
		{"links present", func() error { return s.seeTestLinks(ctx) }},
		{"link count", func() error { return s.seeTestLinkCount(ctx, 3) }},
		{"open dynamic ID", func() error { return s.openDynamicID(ctx) }},
		{"on dynamic ID page", func() error { return s.onDynamicIDPage(ctx) }},
		{"click button", func() error { return s.clickDynamicIDButton(ctx) }},
		{"button text", func() error { return s.buttonReads(ctx, "Button with Dynamic ID") }},
	} {
		if err := step.run(); err != nil {
			t.Fatalf("step %q returned error: %v", step.desc, err)
		}
	}
}

func TestOpenTestLinkByName(t *testing.T) {
	e := newEnv(t, baseURL, map[string]string{
		baseURL:                homeDoc,
		baseURL + "/dynamicid": dynamicIDDoc,
	})
	ctx, _ := start(t, e)
	s := &homeSteps{}
	if err := s.navigateToHomepage(ctx); err != nil {
		t.Fatalf("navigateToHomepage() returned error: %v", err)
	}
	if err := s.openTestLink("Dynamic ID"); err != nil {
		t.Fatalf("openTestLink() returned error: %v", err)
	}
	if err := s.onDynamicIDPage(ctx); err != nil {
		t.Errorf("onDynamicIDPage() returned error: %v", err)
	}
}

func TestStepsNeedTheHomePage(t *testing.T) {
	e := newEnv(t, baseURL, map[string]string{baseURL: homeDoc})
	ctx, _ := start(t, e)
	s := &homeSteps{}
	for _, tc := range []struct {
		desc string
		err  error
		want error
	}{
		{desc: "view title", err: s.viewPageTitle(), want: errNoHomePage},
		{desc: "check links", err: s.checkTestLinks(), want: errNoHomePage},
		{desc: "open link", err: s.openTestLink("Dynamic ID"), want: errNoHomePage},
		{desc: "button", err: s.clickDynamicIDButton(ctx), want: errNoDynamicIDPage},
	} {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%s returned error %v, want %v", tc.desc, tc.err, tc.want)
		}
	}
}

func TestTitleMismatchIsReported(t *testing.T) {
	e := newEnv(t, baseURL, map[string]string{
		baseURL: `<html><body><div class="container"><h1>Wrong Title</h1></div></body></html>`,
	})
	ctx, w := start(t, e)
	s := &homeSteps{}
	if err := s.navigateToHomepage(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.viewPageTitle(); err != nil {
		t.Fatal(err)
	}

	err := s.titleDisplayedCorrectly(ctx)
	var f *assertion.Failure
	if !errors.As(err, &f) {
		t.Fatalf("titleDisplayedCorrectly() returned %v, want an assertion failure", err)
	}
	want := "Page title verification failed: expected 'UI Test Automation Playground' but got 'Wrong Title'"
	if f.Message != want {
		t.Errorf("failure message = %q, want %q", f.Message, want)
	}
	if got := w.Tracker.Test().Status(); got != report.StatusFail {
		t.Errorf("report status = %s, want fail", got)
	}
}

func TestMissingLinkFails(t *testing.T) {
	e := newEnv(t, baseURL, map[string]string{baseURL: homeDoc})
	ctx, _ := start(t, e)
	s := &homeSteps{}
	if err := s.navigateToHomepage(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.openTestLink("Shadow DOM"); err == nil {
		t.Error("openTestLink(Shadow DOM) returned nil error")
	}
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, homeDoc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAPISteps(t *testing.T) {
	srv := newSite(t)
	e := newEnv(t, srv.URL, nil)
	ctx, w := start(t, e, "@api")
	s := &apiSteps{client: srv.Client()}

	if err := s.statusIs(ctx, 200); !errors.Is(err, errNoResponse) {
		t.Errorf("statusIs() before a request returned %v, want %v", err, errNoResponse)
	}
	if err := s.requestHomepage(ctx); err != nil {
		t.Fatalf("requestHomepage() returned error: %v", err)
	}
	if err := s.statusIs(ctx, 200); err != nil {
		t.Errorf("statusIs(200) returned error: %v", err)
	}
	if err := s.titleIs(ctx, "UI Test Automation Playground"); err != nil {
		t.Errorf("titleIs() returned error: %v", err)
	}
	if err := s.linkCountIs(ctx, 3); err != nil {
		t.Errorf("linkCountIs(3) returned error: %v", err)
	}

	if err := s.requestPath(ctx, "/missing"); err != nil {
		t.Fatalf("requestPath() returned error: %v", err)
	}
	if err := s.statusIs(ctx, 200); err == nil {
		t.Error("statusIs(200) after a 404 returned nil error")
	}
	if w.Slot.Driver() != nil {
		t.Error("API steps opened a browser session")
	}
}
