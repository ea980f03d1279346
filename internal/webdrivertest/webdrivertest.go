// Package webdrivertest provides an in-memory selenium.WebDriver that serves
// HTML documents, for testing code that drives a browser without one.
//
// Element state is read from the markup:
//
//	hidden, style="display:none"   IsDisplayed reports false
//	disabled                       IsEnabled reports false
//	data-stale                     IsDisplayed fails with a stale element error
//	data-visible-after="N"         the first N IsDisplayed calls report false
//
// Following a link with an href that resolves to a registered page navigates
// to it.
package webdrivertest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"
)

var sessions int64

const (
	defaultWaitInterval = 100 * time.Millisecond
	defaultWaitTimeout  = 60 * time.Second
)

// Script is a recorded ExecuteScript call.
type Script struct {
	Code string
	Args []interface{}
}

// Driver is a fake selenium.WebDriver. Methods it does not implement panic
// through the nil embedded interface.
type Driver struct {
	selenium.WebDriver

	mu      sync.Mutex
	pages   map[string]string
	url     string
	doc     *goquery.Document
	session string
	quit    bool
	seen    map[interface{}]int // IsDisplayed calls per node

	scripts []Script
	clicks  []string

	// ScreenshotPNG is returned by Screenshot; New sets a 4x4 image.
	ScreenshotPNG []byte
	// ScreenshotErr, when set, is returned by Screenshot instead.
	ScreenshotErr error
	// Logs is returned by Log for every log type.
	Logs []log.Message

	ImplicitWait    time.Duration
	PageLoadTimeout time.Duration
	ScriptTimeout   time.Duration
	Maximized       bool
	Width, Height   int
}

// New returns a Driver serving pages, keyed by absolute URL.
func New(pages map[string]string) *Driver {
	d := &Driver{
		pages:         make(map[string]string),
		session:       fmt.Sprintf("fake-session-%d", atomic.AddInt64(&sessions, 1)),
		seen:          make(map[interface{}]int),
		ScreenshotPNG: solidPNG(4, 4),
	}
	for u, p := range pages {
		d.pages[u] = p
	}
	return d
}

// SetPage registers or replaces the document served at u.
func (d *Driver) SetPage(u, doc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[u] = doc
}

func solidPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func noSuchElement(by, value string) error {
	return &selenium.Error{
		Err:      "no such element",
		Message:  fmt.Sprintf("Unable to locate element: {%q: %q}", by, value),
		HTTPCode: 404,
	}
}

var errStale = &selenium.Error{
	Err:      "stale element reference",
	Message:  "element is not attached to the page document",
	HTTPCode: 404,
}

var errNoSession = &selenium.Error{Err: "invalid session id", HTTPCode: 404}

func (d *Driver) checkSession() error {
	if d.quit {
		return errNoSession
	}
	return nil
}

// Scripts returns the scripts executed so far.
func (d *Driver) Scripts() []Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Script(nil), d.scripts...)
}

// Clicks returns the trimmed text of every element clicked so far.
func (d *Driver) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.clicks...)
}

// Quitted reports whether Quit was called.
func (d *Driver) Quitted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

func (d *Driver) SessionID() string { return d.session }

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkSession(); err != nil {
		return err
	}
	d.quit = true
	return nil
}

func (d *Driver) SetImplicitWaitTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ImplicitWait = t
	return d.checkSession()
}

func (d *Driver) SetPageLoadTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PageLoadTimeout = t
	return d.checkSession()
}

func (d *Driver) SetAsyncScriptTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ScriptTimeout = t
	return d.checkSession()
}

func (d *Driver) MaximizeWindow(string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Maximized = true
	return d.checkSession()
}

func (d *Driver) ResizeWindow(_ string, w, h int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Width, d.Height = w, h
	return d.checkSession()
}

func (d *Driver) Get(u string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.navigate(u)
}

func (d *Driver) navigate(u string) error {
	if err := d.checkSession(); err != nil {
		return err
	}
	src, ok := d.pages[u]
	if !ok {
		src, ok = d.pages[strings.TrimRight(u, "/")]
	}
	if !ok {
		return fmt.Errorf("unknown error: net::ERR_NAME_NOT_RESOLVED at %s", u)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return err
	}
	d.url, d.doc = u, doc
	d.seen = make(map[interface{}]int)
	return nil
}

func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, d.checkSession()
}

func (d *Driver) Title() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkSession(); err != nil {
		return "", err
	}
	if d.doc == nil {
		return "", nil
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

func (d *Driver) PageSource() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkSession(); err != nil {
		return "", err
	}
	if d.doc == nil {
		return "", nil
	}
	return d.doc.Html()
}

// find resolves a locator against the current document.
func (d *Driver) find(by, value string) (*goquery.Selection, error) {
	if err := d.checkSession(); err != nil {
		return nil, err
	}
	if d.doc == nil {
		return nil, noSuchElement(by, value)
	}
	root := d.doc.Selection
	switch by {
	case selenium.ByCSSSelector:
		return root.Find(value), nil
	case selenium.ByID:
		return root.Find("#" + value), nil
	case selenium.ByName:
		return root.Find(fmt.Sprintf("[name=%q]", value)), nil
	case selenium.ByTagName:
		return root.Find(value), nil
	case selenium.ByClassName:
		return root.Find("." + value), nil
	case selenium.ByLinkText, selenium.ByPartialLinkText:
		return root.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if by == selenium.ByLinkText {
				return text == value
			}
			return strings.Contains(text, value)
		}), nil
	}
	return nil, &selenium.Error{Err: "invalid argument", Message: fmt.Sprintf("unsupported locator strategy %q", by), HTTPCode: 400}
}

func (d *Driver) FindElement(by, value string) (selenium.WebElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := d.find(by, value)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, noSuchElement(by, value)
	}
	return &Element{d: d, sel: sel.First()}, nil
}

func (d *Driver) FindElements(by, value string) ([]selenium.WebElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := d.find(by, value)
	if err != nil {
		return nil, err
	}
	var els []selenium.WebElement
	sel.Each(func(_ int, s *goquery.Selection) {
		els = append(els, &Element{d: d, sel: s})
	})
	return els, nil
}

func (d *Driver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkSession(); err != nil {
		return nil, err
	}
	d.scripts = append(d.scripts, Script{Code: script, Args: args})
	return nil, nil
}

func (d *Driver) Screenshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkSession(); err != nil {
		return nil, err
	}
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	return d.ScreenshotPNG, nil
}

func (d *Driver) Log(log.Type) ([]log.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkSession(); err != nil {
		return nil, err
	}
	msgs := d.Logs
	d.Logs = nil
	return msgs, nil
}

func (d *Driver) WaitWithTimeoutAndInterval(condition selenium.Condition, timeout, interval time.Duration) error {
	start := time.Now()
	for {
		done, err := condition(d)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if elapsed := time.Since(start); elapsed > timeout {
			return fmt.Errorf("timeout after %v", elapsed)
		}
		time.Sleep(interval)
	}
}

func (d *Driver) WaitWithTimeout(condition selenium.Condition, timeout time.Duration) error {
	return d.WaitWithTimeoutAndInterval(condition, timeout, defaultWaitInterval)
}

func (d *Driver) Wait(condition selenium.Condition) error {
	return d.WaitWithTimeout(condition, defaultWaitTimeout)
}

// Element is a fake selenium.WebElement bound to a node of the current
// document.
type Element struct {
	selenium.WebElement

	d   *Driver
	sel *goquery.Selection
}

// Selection exposes the underlying node, for assertions in tests.
func (e *Element) Selection() *goquery.Selection {
	return e.sel
}

func (e *Element) stale() bool {
	_, ok := e.sel.Attr("data-stale")
	return ok
}

func (e *Element) Click() error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.d.checkSession(); err != nil {
		return err
	}
	if e.stale() {
		return errStale
	}
	if _, disabled := e.sel.Attr("disabled"); disabled {
		return &selenium.Error{Err: "element not interactable", HTTPCode: 400}
	}
	e.d.clicks = append(e.d.clicks, strings.TrimSpace(e.sel.Text()))

	href, ok := e.sel.Attr("href")
	if !ok || href == "" {
		return nil
	}
	base, err := url.Parse(e.d.url)
	if err != nil {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	target := base.ResolveReference(ref).String()
	if _, known := e.d.pages[target]; known {
		return e.d.navigate(target)
	}
	return nil
}

func (e *Element) SendKeys(keys string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.stale() {
		return errStale
	}
	v, _ := e.sel.Attr("value")
	e.sel.SetAttr("value", v+keys)
	return nil
}

func (e *Element) Clear() error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.stale() {
		return errStale
	}
	e.sel.SetAttr("value", "")
	return nil
}

func (e *Element) Text() (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.stale() {
		return "", errStale
	}
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *Element) TagName() (string, error) {
	return goquery.NodeName(e.sel), nil
}

func (e *Element) IsDisplayed() (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.d.checkSession(); err != nil {
		return false, err
	}
	if e.stale() {
		return false, errStale
	}
	if _, hidden := e.sel.Attr("hidden"); hidden {
		return false, nil
	}
	style, _ := e.sel.Attr("style")
	if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
		return false, nil
	}
	if after, ok := e.sel.Attr("data-visible-after"); ok {
		n, err := strconv.Atoi(after)
		if err != nil {
			return false, errors.New("malformed data-visible-after")
		}
		node := e.sel.Get(0)
		e.d.seen[node]++
		return e.d.seen[node] > n, nil
	}
	return true, nil
}

func (e *Element) IsEnabled() (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.stale() {
		return false, errStale
	}
	_, disabled := e.sel.Attr("disabled")
	return !disabled, nil
}

func (e *Element) GetAttribute(name string) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.stale() {
		return "", errStale
	}
	v, ok := e.sel.Attr(name)
	if !ok {
		return "", fmt.Errorf("nil return value")
	}
	return v, nil
}
