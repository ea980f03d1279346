// Package page provides the base of page objects: element lookup with
// explicit waits, element labels for logging, and the common interactions.
//
// A concrete page declares its elements in a table and embeds *Base:
//
//	var header = page.Element{ID: "header", Name: "Page Header", Locator: page.CSS("h3")}
//
//	type Dashboard struct{ *page.Base }
//
//	func NewDashboard(d page.Driver, timeout time.Duration) (*Dashboard, error) {
//		b, err := page.New("Dashboard", d, timeout, []page.Element{header})
//		...
//	}
package page

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

// DefaultPollInterval is how often waits re-check their condition.
const DefaultPollInterval = 250 * time.Millisecond

// highlightScript outlines the element passed as the first argument.
const highlightScript = "arguments[0].style.border='2px solid red'"

// Driver yields the WebDriver session of the calling worker.
type Driver interface {
	Get() (selenium.WebDriver, error)
}

// Option configures a Base.
type Option func(*Base)

// WithHighlight turns outlining elements before interacting on or off.
func WithHighlight(on bool) Option {
	return func(p *Base) { p.highlight = on }
}

// WithPollInterval sets how often waits poll.
func WithPollInterval(d time.Duration) Option {
	return func(p *Base) { p.interval = d }
}

// Base is embedded by page objects. It is bound to one worker's session and
// is not safe for concurrent use.
type Base struct {
	name      string
	wd        selenium.WebDriver
	timeout   time.Duration
	interval  time.Duration
	names     *Names
	highlight bool
}

// New binds a page named name to the session of d. Waits give up after
// timeout. elems is the page's element table.
func New(name string, d Driver, timeout time.Duration, elems []Element, opts ...Option) (*Base, error) {
	wd, err := d.Get()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p := &Base{
		name:      name,
		wd:        wd,
		timeout:   timeout,
		interval:  DefaultPollInterval,
		names:     NewNames(elems...),
		highlight: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	glog.V(1).Infof("Initialized %s with %d named elements", name, p.names.Len())
	return p, nil
}

// Name is the page's display name.
func (p *Base) Name() string { return p.name }

// WebDriver is the session the page acts on.
func (p *Base) WebDriver() selenium.WebDriver { return p.wd }

// Label returns the registered label of l.
func (p *Base) Label(l Locator) string { return p.names.Label(l) }

// Navigate loads url in the browser.
func (p *Base) Navigate(url string) error {
	glog.Infof("%s: navigating to %s", p.name, url)
	if err := p.wd.Get(url); err != nil {
		glog.Errorf("%s: navigating to %s: %v", p.name, url, err)
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Title returns the document title.
func (p *Base) Title() (string, error) {
	return p.wd.Title()
}

// CurrentURL returns the URL of the current document.
func (p *Base) CurrentURL() (string, error) {
	return p.wd.CurrentURL()
}

func (p *Base) waitFor(l Locator, state string) (selenium.WebElement, error) {
	label := p.Label(l)
	var (
		found   selenium.WebElement
		condErr error
	)
	inner := elementIn(l, state, &found)
	cond := func(wd selenium.WebDriver) (bool, error) {
		ok, err := inner(wd)
		if err != nil {
			condErr = err
		}
		return ok, err
	}

	err := p.wd.WaitWithTimeoutAndInterval(cond, p.timeout, p.interval)
	switch {
	case err == nil:
		return found, nil
	case condErr != nil:
		glog.Errorf("%s: waiting for %s (%v): %v", p.name, label, l, err)
		return nil, fmt.Errorf("waiting for %s to become %s: %w", label, state, err)
	default:
		terr := &TimeoutError{Element: label, State: state, Timeout: p.timeout, Err: err}
		glog.Errorf("%s: %v (%v)", p.name, terr, l)
		return nil, terr
	}
}

// WaitVisible waits until l is displayed.
func (p *Base) WaitVisible(l Locator) (selenium.WebElement, error) {
	return p.waitFor(l, stateVisible)
}

// WaitClickable waits until l is displayed and enabled.
func (p *Base) WaitClickable(l Locator) (selenium.WebElement, error) {
	return p.waitFor(l, stateClickable)
}

func (p *Base) outline(el selenium.WebElement, label string) {
	if !p.highlight {
		return
	}
	if _, err := p.wd.ExecuteScript(highlightScript, []interface{}{el}); err != nil {
		glog.V(1).Infof("%s: highlighting %s: %v", p.name, label, err)
	}
}

// Click waits for l to be clickable and clicks it.
func (p *Base) Click(l Locator) error {
	el, err := p.WaitClickable(l)
	if err != nil {
		return err
	}
	return p.ClickElement(el, p.Label(l))
}

// ClickElement clicks an element that was already located, logging it as
// label.
func (p *Base) ClickElement(el selenium.WebElement, label string) error {
	p.outline(el, label)
	if err := el.Click(); err != nil {
		glog.Errorf("%s: clicking %s: %v", p.name, label, err)
		return fmt.Errorf("clicking %s: %w", label, err)
	}
	glog.Infof("%s: clicked %s", p.name, label)
	return nil
}

// SendText waits for l to be visible, clears it and types text.
func (p *Base) SendText(l Locator, text string) error {
	label := p.Label(l)
	el, err := p.WaitVisible(l)
	if err != nil {
		return err
	}
	p.outline(el, label)
	if err := el.Clear(); err != nil {
		glog.Errorf("%s: clearing %s: %v", p.name, label, err)
		return fmt.Errorf("clearing %s: %w", label, err)
	}
	if err := el.SendKeys(text); err != nil {
		glog.Errorf("%s: typing into %s: %v", p.name, label, err)
		return fmt.Errorf("typing into %s: %w", label, err)
	}
	glog.Infof("%s: entered %q into %s", p.name, text, label)
	return nil
}

// Text waits for l to be visible, highlights it and returns its text.
func (p *Base) Text(l Locator) (string, error) {
	el, err := p.WaitVisible(l)
	if err != nil {
		return "", err
	}
	label := p.Label(l)
	p.outline(el, label)
	return p.TextOf(el, label)
}

// TextOf returns the text of an element that was already located.
func (p *Base) TextOf(el selenium.WebElement, label string) (string, error) {
	text, err := el.Text()
	if err != nil {
		glog.Errorf("%s: reading text of %s: %v", p.name, label, err)
		return "", fmt.Errorf("reading text of %s: %w", label, err)
	}
	glog.Infof("%s: read %q from %s", p.name, text, label)
	return text, nil
}

// IsDisplayed reports whether l is present and displayed right now; it does
// not wait. Missing and stale elements are reported as not displayed.
func (p *Base) IsDisplayed(l Locator) (bool, error) {
	label := p.Label(l)
	el, err := p.wd.FindElement(l.By, l.Value)
	if err == nil {
		var shown bool
		if shown, err = el.IsDisplayed(); err == nil {
			glog.V(1).Infof("%s: %s displayed: %t", p.name, label, shown)
			return shown, nil
		}
	}
	if isMissing(err) {
		glog.V(1).Infof("%s: %s is not present", p.name, label)
		return false, nil
	}
	return false, fmt.Errorf("checking whether %s is displayed: %w", label, err)
}

// FindAll returns every element matching l without waiting; no match is not
// an error.
func (p *Base) FindAll(l Locator) ([]selenium.WebElement, error) {
	els, err := p.wd.FindElements(l.By, l.Value)
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding %s: %w", p.Label(l), err)
	}
	return els, nil
}

// ExecuteScript runs JavaScript in the page.
func (p *Base) ExecuteScript(script string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	v, err := p.wd.ExecuteScript(script, args)
	if err != nil {
		glog.Errorf("%s: executing script: %v", p.name, err)
		return nil, fmt.Errorf("executing script: %w", err)
	}
	return v, nil
}

// IsTimeout reports whether err came from a wait that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
