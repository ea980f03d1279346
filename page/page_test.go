package page

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium"

	"github.com/TylerHight/test-automation-playground/internal/webdrivertest"
)

const testURL = "http://playground.test/form"

const testDoc = `<html><head><title>Form</title></head><body>
<h3 id="header">  Sample Form </h3>
<input id="name" value="prefilled">
<button id="submit">Submit</button>
<button id="locked" disabled>Locked</button>
<div id="hidden" style="display: none">Hidden</div>
<div id="late" data-visible-after="2">Late</div>
<div id="stale" data-stale>Stale</div>
<ul><li class="item">one</li><li class="item">two</li></ul>
</body></html>`

var (
	header = Element{ID: "header", Name: "Page Header", Locator: ID("header")}
	name   = Element{ID: "nameInput", Locator: ID("name")}
	submit = Element{ID: "submit", Name: "Submit Button", Locator: ID("submit")}
)

type session struct {
	wd  selenium.WebDriver
	err error
}

func (s session) Get() (selenium.WebDriver, error) { return s.wd, s.err }

func newTestPage(t *testing.T, opts ...Option) (*Base, *webdrivertest.Driver) {
	t.Helper()
	wd := webdrivertest.New(map[string]string{testURL: testDoc})
	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	p, err := New("Form Page", session{wd: wd}, 50*time.Millisecond, []Element{header, name, submit}, opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if err := p.Navigate(testURL); err != nil {
		t.Fatalf("Navigate(%q) returned error: %v", testURL, err)
	}
	return p, wd
}

func TestNewPropagatesDriverError(t *testing.T) {
	want := errors.New("driver unavailable")
	if _, err := New("Broken", session{err: want}, time.Second, nil); !errors.Is(err, want) {
		t.Fatalf("New() returned error %v, want %v", err, want)
	}
}

func TestNavigateUnknownURL(t *testing.T) {
	p, _ := newTestPage(t)
	if err := p.Navigate("http://nowhere.test/"); err == nil {
		t.Fatal("Navigate() returned nil error for an unresolvable URL")
	}
}

func TestText(t *testing.T) {
	p, _ := newTestPage(t)

	for _, tc := range []struct {
		desc    string
		loc     Locator
		want    string
		timeout bool
	}{
		{desc: "visible element", loc: header.Locator, want: "Sample Form"},
		{desc: "appears after polling", loc: ID("late"), want: "Late"},
		{desc: "never visible", loc: ID("hidden"), timeout: true},
		{desc: "absent", loc: CSS("#missing"), timeout: true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := p.Text(tc.loc)
			if tc.timeout {
				if !IsTimeout(err) {
					t.Fatalf("Text(%v) returned error %v, want a timeout", tc.loc, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Text(%v) returned error: %v", tc.loc, err)
			}
			if got != tc.want {
				t.Errorf("Text(%v) = %q, want %q", tc.loc, got, tc.want)
			}
		})
	}
}

func TestTimeoutErrorNamesElement(t *testing.T) {
	p, _ := newTestPage(t)
	hidden := Element{ID: "hidden", Name: "Hidden Banner", Locator: ID("hidden")}
	p.names = NewNames(hidden)

	_, err := p.Text(hidden.Locator)
	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("Text() returned %T (%v), want *TimeoutError", err, err)
	}
	if diff := cmp.Diff("Hidden Banner", terr.Element); diff != "" {
		t.Errorf("TimeoutError.Element (-want/+got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "visible") {
		t.Errorf("error %q does not mention the awaited state", err)
	}
}

func TestTextHighlights(t *testing.T) {
	for _, tc := range []struct {
		desc      string
		highlight bool
		want      int
	}{
		{desc: "highlight on", highlight: true, want: 1},
		{desc: "highlight off", highlight: false},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			p, wd := newTestPage(t, WithHighlight(tc.highlight))
			if _, err := p.Text(header.Locator); err != nil {
				t.Fatalf("Text() returned error: %v", err)
			}
			scripts := wd.Scripts()
			if len(scripts) != tc.want {
				t.Fatalf("got %d scripts, want %d: %+v", len(scripts), tc.want, scripts)
			}
			for _, s := range scripts {
				if s.Code != highlightScript {
					t.Errorf("script %q, want the highlight script", s.Code)
				}
			}
		})
	}
}

func TestClick(t *testing.T) {
	p, wd := newTestPage(t)
	if err := p.Click(submit.Locator); err != nil {
		t.Fatalf("Click() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Submit"}, wd.Clicks()); diff != "" {
		t.Errorf("clicks (-want/+got):\n%s", diff)
	}
	scripts := wd.Scripts()
	if len(scripts) != 1 || scripts[0].Code != highlightScript {
		t.Errorf("scripts = %+v, want one highlight", scripts)
	}
}

func TestClickWithoutHighlight(t *testing.T) {
	p, wd := newTestPage(t, WithHighlight(false))
	if err := p.Click(submit.Locator); err != nil {
		t.Fatalf("Click() returned error: %v", err)
	}
	if got := wd.Scripts(); len(got) != 0 {
		t.Errorf("scripts = %+v, want none", got)
	}
}

func TestClickDisabledTimesOut(t *testing.T) {
	p, wd := newTestPage(t)
	if err := p.Click(ID("locked")); !IsTimeout(err) {
		t.Fatalf("Click() returned error %v, want a timeout", err)
	}
	if got := wd.Clicks(); len(got) != 0 {
		t.Errorf("clicks = %q, want none", got)
	}
}

func TestWaitStaleIsRetried(t *testing.T) {
	p, _ := newTestPage(t)
	if _, err := p.WaitVisible(ID("stale")); !IsTimeout(err) {
		t.Fatalf("WaitVisible() returned error %v, want a timeout", err)
	}
}

func TestWaitConditionError(t *testing.T) {
	p, _ := newTestPage(t)
	_, err := p.WaitVisible(Locator{By: "bogus", Value: "x"})
	if err == nil {
		t.Fatal("WaitVisible() returned nil error for an invalid locator strategy")
	}
	if IsTimeout(err) {
		t.Errorf("WaitVisible() returned a timeout, want the driver's error: %v", err)
	}
}

func TestSendText(t *testing.T) {
	p, wd := newTestPage(t)
	if err := p.SendText(name.Locator, "Ada"); err != nil {
		t.Fatalf("SendText() returned error: %v", err)
	}
	el, err := wd.FindElement(selenium.ByID, "name")
	if err != nil {
		t.Fatalf("FindElement() returned error: %v", err)
	}
	got, err := el.GetAttribute("value")
	if err != nil {
		t.Fatalf("GetAttribute() returned error: %v", err)
	}
	if got != "Ada" {
		t.Errorf("value = %q, want %q", got, "Ada")
	}
}

func TestIsDisplayed(t *testing.T) {
	p, _ := newTestPage(t)

	for _, tc := range []struct {
		desc string
		loc  Locator
		want bool
	}{
		{desc: "visible", loc: header.Locator, want: true},
		{desc: "display none", loc: ID("hidden"), want: false},
		{desc: "absent", loc: ID("missing"), want: false},
		{desc: "stale", loc: ID("stale"), want: false},
		// IsDisplayed does not wait, so the first poll reports hidden.
		{desc: "not yet visible", loc: ID("late"), want: false},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			start := time.Now()
			got, err := p.IsDisplayed(tc.loc)
			if err != nil {
				t.Fatalf("IsDisplayed(%v) returned error: %v", tc.loc, err)
			}
			if got != tc.want {
				t.Errorf("IsDisplayed(%v) = %t, want %t", tc.loc, got, tc.want)
			}
			if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
				t.Errorf("IsDisplayed(%v) took %v, want no waiting", tc.loc, elapsed)
			}
		})
	}
}

func TestFindAll(t *testing.T) {
	p, _ := newTestPage(t)

	els, err := p.FindAll(CSS("li.item"))
	if err != nil {
		t.Fatalf("FindAll() returned error: %v", err)
	}
	var got []string
	for _, el := range els {
		text, err := p.TextOf(el, "item")
		if err != nil {
			t.Fatalf("TextOf() returned error: %v", err)
		}
		got = append(got, text)
	}
	if diff := cmp.Diff([]string{"one", "two"}, got); diff != "" {
		t.Errorf("FindAll() texts (-want/+got):\n%s", diff)
	}

	none, err := p.FindAll(CSS("li.absent"))
	if err != nil {
		t.Fatalf("FindAll() returned error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindAll() returned %d elements, want 0", len(none))
	}
}

func TestTitleAndURL(t *testing.T) {
	p, _ := newTestPage(t)
	title, err := p.Title()
	if err != nil {
		t.Fatalf("Title() returned error: %v", err)
	}
	if title != "Form" {
		t.Errorf("Title() = %q, want %q", title, "Form")
	}
	u, err := p.CurrentURL()
	if err != nil {
		t.Fatalf("CurrentURL() returned error: %v", err)
	}
	if u != testURL {
		t.Errorf("CurrentURL() = %q, want %q", u, testURL)
	}
}

func TestExecuteScript(t *testing.T) {
	p, wd := newTestPage(t)
	if _, err := p.ExecuteScript("window.scrollTo(0, 0)"); err != nil {
		t.Fatalf("ExecuteScript() returned error: %v", err)
	}
	want := []webdrivertest.Script{{Code: "window.scrollTo(0, 0)", Args: []interface{}{}}}
	if diff := cmp.Diff(want, wd.Scripts()); diff != "" {
		t.Errorf("scripts (-want/+got):\n%s", diff)
	}
}
