package driver

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"

	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/internal/webdrivertest"
)

const fakeExecutor = "http://127.0.0.1:4444/wd/hub"

// fakeRemote records session requests and hands out fake drivers.
type fakeRemote struct {
	mu       sync.Mutex
	err      error
	requests []selenium.Capabilities
	drivers  []*webdrivertest.Driver
}

func (f *fakeRemote) newRemote(caps selenium.Capabilities, executor string) (selenium.WebDriver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if executor != fakeExecutor {
		return nil, errors.New("unexpected executor " + executor)
	}
	f.requests = append(f.requests, caps)
	if f.err != nil {
		return nil, f.err
	}
	wd := webdrivertest.New(nil)
	f.drivers = append(f.drivers, wd)
	return wd, nil
}

func newTestManager(t *testing.T, cfg *config.Config, opts ...Option) (*Manager, *fakeRemote) {
	t.Helper()
	fr := &fakeRemote{}
	opts = append([]Option{WithRemote(fr.newRemote), WithExecutor(fakeExecutor)}, opts...)
	m, err := NewManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager() returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close() returned error: %v", err)
		}
	})
	return m, fr
}

func TestParseBrowser(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Browser
	}{
		{in: "chrome", want: Chrome},
		{in: "Firefox", want: Firefox},
		{in: " EDGE ", want: Edge},
		{in: "", want: Chrome},
		{in: "safari", want: Chrome},
	} {
		if got := ParseBrowser(tc.in); got != tc.want {
			t.Errorf("ParseBrowser(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInitSelectsBackend(t *testing.T) {
	for _, tc := range []struct {
		browser string
		want    string
	}{
		{browser: "chrome", want: "chrome"},
		{browser: "firefox", want: "firefox"},
		{browser: "edge", want: "MicrosoftEdge"},
		{browser: "", want: "chrome"},
		{browser: "opera", want: "chrome"},
	} {
		t.Run(tc.browser, func(t *testing.T) {
			cfg := config.Default()
			cfg.Browser = tc.browser
			m, fr := newTestManager(t, cfg)
			s := m.NewSlot()
			if err := s.Init(); err != nil {
				t.Fatalf("Init() returned error: %v", err)
			}
			defer s.Quit()
			if len(fr.requests) != 1 {
				t.Fatalf("got %d session requests, want 1", len(fr.requests))
			}
			if got := fr.requests[0]["browserName"]; got != tc.want {
				t.Errorf("browserName = %v, want %q", got, tc.want)
			}
		})
	}
}

func TestGetReusesSession(t *testing.T) {
	m, fr := newTestManager(t, config.Default())
	s := m.NewSlot()

	if s.Driver() != nil {
		t.Fatal("Driver() is not nil before the first Get")
	}
	first, err := s.Get()
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	second, err := s.Get()
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if first != second {
		t.Error("second Get() returned a different session")
	}
	if s.Driver() != first {
		t.Error("Driver() differs from Get()")
	}

	if err := s.Quit(); err != nil {
		t.Fatalf("Quit() returned error: %v", err)
	}
	if !fr.drivers[0].Quitted() {
		t.Error("Quit() did not quit the session")
	}
	if s.Driver() != nil {
		t.Error("Driver() is not nil after Quit")
	}
	if err := s.Quit(); err != nil {
		t.Errorf("second Quit() returned error: %v", err)
	}

	third, err := s.Get()
	if err != nil {
		t.Fatalf("Get() after Quit returned error: %v", err)
	}
	if third == first {
		t.Error("Get() after Quit returned the quit session")
	}
	if got := len(fr.requests); got != 2 {
		t.Errorf("got %d session requests, want 2", got)
	}
	s.Quit()
}

func TestInitReplacesSession(t *testing.T) {
	m, fr := newTestManager(t, config.Default())
	s := m.NewSlot()
	if err := s.Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("second Init() returned error: %v", err)
	}
	defer s.Quit()
	if !fr.drivers[0].Quitted() {
		t.Error("Init() left the previous session open")
	}
	if s.Driver() != fr.drivers[1] {
		t.Error("Driver() is not the newest session")
	}
}

func TestConcurrentSlots(t *testing.T) {
	m, _ := newTestManager(t, config.Default())

	const workers = 6
	sessions := make([]selenium.WebDriver, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := m.NewSlot()
			wd, err := s.Get()
			if err != nil {
				t.Errorf("worker %d: Get() returned error: %v", i, err)
				return
			}
			again, _ := s.Get()
			if again != wd {
				t.Errorf("worker %d: Get() changed session", i)
			}
			sessions[i] = wd
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	for i, wd := range sessions {
		if wd == nil {
			continue
		}
		if j, dup := seen[wd.SessionID()]; dup {
			t.Errorf("workers %d and %d share session %s", j, i, wd.SessionID())
		}
		seen[wd.SessionID()] = i
	}
}

func TestCreationErrorPropagates(t *testing.T) {
	want := errors.New("session not created: Chrome failed to start")
	var outcomes []bool
	m, fr := newTestManager(t, config.Default(), WithSessionObserver(func(_ string, ok bool) {
		outcomes = append(outcomes, ok)
	}))
	fr.err = want

	s := m.NewSlot()
	wd, err := s.Get()
	if !errors.Is(err, want) {
		t.Fatalf("Get() returned error %v, want %v", err, want)
	}
	if wd != nil || s.Driver() != nil {
		t.Error("failed Get() left a session in the slot")
	}
	if got := len(fr.requests); got != 1 {
		t.Errorf("got %d session requests, want exactly 1 (no retry)", got)
	}
	if diff := cmp.Diff([]bool{false}, outcomes); diff != "" {
		t.Errorf("observed outcomes (-want/+got):\n%s", diff)
	}
}

func TestSessionIsConfigured(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		headless      bool
		wantMaximized bool
	}{
		{desc: "windowed", wantMaximized: true},
		{desc: "headless", headless: true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := config.Default()
			cfg.Headless = tc.headless
			m, fr := newTestManager(t, cfg)
			s := m.NewSlot()
			if _, err := s.Get(); err != nil {
				t.Fatalf("Get() returned error: %v", err)
			}
			defer s.Quit()

			wd := fr.drivers[0]
			if wd.ImplicitWait != 5*time.Second {
				t.Errorf("implicit wait = %v, want 5s", wd.ImplicitWait)
			}
			if wd.PageLoadTimeout != 30*time.Second {
				t.Errorf("page load timeout = %v, want 30s", wd.PageLoadTimeout)
			}
			if wd.ScriptTimeout != 30*time.Second {
				t.Errorf("script timeout = %v, want 30s", wd.ScriptTimeout)
			}
			if wd.Maximized != tc.wantMaximized {
				t.Errorf("maximized = %t, want %t", wd.Maximized, tc.wantMaximized)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		browser Browser
		opts    capsOptions
		check   func(t *testing.T, caps selenium.Capabilities)
	}{
		{
			desc:    "headless chrome",
			browser: Chrome,
			opts:    capsOptions{headless: true, windowSize: "1280x720"},
			check: func(t *testing.T, caps selenium.Capabilities) {
				cc, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
				if !ok {
					t.Fatalf("%s = %T, want chrome.Capabilities", chrome.CapabilitiesKey, caps[chrome.CapabilitiesKey])
				}
				want := []string{"--headless", "--disable-gpu", "--window-size=1280,720"}
				if diff := cmp.Diff(want, cc.Args); diff != "" {
					t.Errorf("chrome args (-want/+got):\n%s", diff)
				}
				if _, ok := caps["goog:loggingPrefs"]; ok {
					t.Error("performance logging enabled without networkLog")
				}
			},
		},
		{
			desc:    "windowed chrome with network log",
			browser: Chrome,
			opts:    capsOptions{windowSize: "1920x1080", networkLog: true},
			check: func(t *testing.T, caps selenium.Capabilities) {
				cc := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
				if len(cc.Args) != 0 {
					t.Errorf("chrome args = %q, want none", cc.Args)
				}
				prefs, ok := caps["goog:loggingPrefs"].(log.Capabilities)
				if !ok {
					t.Fatalf("capabilities %v lack logging preferences", caps)
				}
				if diff := cmp.Diff(log.Capabilities{log.Performance: log.All}, prefs); diff != "" {
					t.Errorf("logging preferences (-want/+got):\n%s", diff)
				}
				if _, ok := caps["loggingPrefs"]; ok {
					t.Error("capabilities carry the pre-W3C loggingPrefs key")
				}
			},
		},
		{
			desc:    "headless firefox",
			browser: Firefox,
			opts:    capsOptions{headless: true, windowSize: "1280x720"},
			check: func(t *testing.T, caps selenium.Capabilities) {
				fc, ok := caps[firefox.CapabilitiesKey].(firefox.Capabilities)
				if !ok {
					t.Fatalf("%s = %T, want firefox.Capabilities", firefox.CapabilitiesKey, caps[firefox.CapabilitiesKey])
				}
				want := []string{"-headless", "--width=1280", "--height=720"}
				if diff := cmp.Diff(want, fc.Args); diff != "" {
					t.Errorf("firefox args (-want/+got):\n%s", diff)
				}
			},
		},
		{
			desc:    "edge behind a proxy",
			browser: Edge,
			opts:    capsOptions{headless: true, windowSize: "bogus", socksAddr: "127.0.0.1:1080"},
			check: func(t *testing.T, caps selenium.Capabilities) {
				eo, ok := caps[edgeOptionsKey].(edgeOptions)
				if !ok {
					t.Fatalf("%s = %T, want edgeOptions", edgeOptionsKey, caps[edgeOptionsKey])
				}
				want := []string{"--headless", "--disable-gpu", "--window-size=1920,1080"}
				if diff := cmp.Diff(want, eo.Args); diff != "" {
					t.Errorf("edge args (-want/+got):\n%s", diff)
				}
				wantProxy := selenium.Proxy{Type: selenium.Manual, SOCKS: "127.0.0.1:1080", SOCKSVersion: 5}
				if diff := cmp.Diff(wantProxy, caps["proxy"]); diff != "" {
					t.Errorf("proxy (-want/+got):\n%s", diff)
				}
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			caps, err := capabilities(tc.browser, tc.opts)
			if err != nil {
				t.Fatalf("capabilities() returned error: %v", err)
			}
			if got, want := caps["browserName"], tc.browser.capabilityName(); got != want {
				t.Errorf("browserName = %v, want %q", got, want)
			}
			tc.check(t, caps)
		})
	}
}

func TestCapabilitiesMissingExtension(t *testing.T) {
	_, err := capabilities(Chrome, capsOptions{extensions: []string{"/nonexistent/ext.crx"}})
	if err == nil {
		t.Error("capabilities() returned nil error for a missing extension")
	}
}

func TestClosedManager(t *testing.T) {
	cfg := config.Default()
	m, err := NewManager(cfg, WithRemote((&fakeRemote{}).newRemote))
	if err != nil {
		t.Fatalf("NewManager() returned error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if _, err := m.NewSlot().Get(); err == nil {
		t.Error("Get() on a closed manager returned nil error")
	}
}
