// Package driver manages WebDriver sessions for concurrently running test
// workers.
//
// A Manager owns the process-wide resources (driver services, grid
// containers, the embedded proxy). Each worker obtains its own Slot and never
// shares it, so at most one live session exists per worker.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/sauce"

	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/internal/extension"
	"github.com/TylerHight/test-automation-playground/internal/grid"
	"github.com/TylerHight/test-automation-playground/internal/proxy"
)

// gridStartTimeout bounds pulling and booting a grid container.
const gridStartTimeout = 3 * time.Minute

// RemoteFunc opens a session against a WebDriver server.
type RemoteFunc func(caps selenium.Capabilities, executor string) (selenium.WebDriver, error)

// Option configures a Manager.
type Option func(*Manager) error

// WithRemote replaces selenium.NewRemote as the session factory.
func WithRemote(f RemoteFunc) Option {
	return func(m *Manager) error {
		if f == nil {
			return errors.New("nil RemoteFunc")
		}
		m.newRemote = f
		return nil
	}
}

// WithExecutor sends every session to addr, bypassing local services and
// grids.
func WithExecutor(addr string) Option {
	return func(m *Manager) error {
		if m.executorURL != "" {
			return fmt.Errorf("executor already set: %v", m.executorURL)
		}
		m.executorURL = addr
		return nil
	}
}

// WithSessionObserver registers a function told about every session
// creation attempt.
func WithSessionObserver(f func(browser string, ok bool)) Option {
	return func(m *Manager) error {
		m.observe = f
		return nil
	}
}

// Manager creates sessions for Slots and owns the resources they share.
type Manager struct {
	cfg         *config.Config
	browser     Browser
	newRemote   RemoteFunc
	executorURL string
	extensions  []string
	observe     func(string, bool)

	mu        sync.Mutex
	services  map[Browser]*localService
	grid      *grid.Grid
	gridAddrs map[Browser]string
	proxy     *proxy.Server
	closed    bool
}

// NewManager prepares a Manager for cfg. Driver services and grid containers
// are started lazily by the first session that needs them.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		browser:   ParseBrowser(cfg.Browser),
		newRemote: selenium.NewRemote,
		services:  make(map[Browser]*localService),
		gridAddrs: make(map[Browser]string),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	selenium.SetDebug(cfg.Debug)

	switch p := strings.ToLower(cfg.Proxy); p {
	case "", "none":
	case "embedded":
		srv, err := proxy.Start("127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("starting embedded proxy: %w", err)
		}
		m.proxy = srv
	}

	for _, dir := range cfg.ChromeExtensions {
		if strings.EqualFold(filepath.Ext(dir), ".crx") {
			m.extensions = append(m.extensions, dir)
			continue
		}
		crx, err := extension.Pack(dir)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.extensions = append(m.extensions, crx)
	}
	return m, nil
}

// Browser is the backend new sessions are created for.
func (m *Manager) Browser() Browser {
	return m.browser
}

// NewSlot returns an empty per-worker slot.
func (m *Manager) NewSlot() *Slot {
	return &Slot{m: m}
}

func (m *Manager) socksAddr() string {
	if m.proxy != nil {
		return m.proxy.Addr()
	}
	switch p := strings.ToLower(m.cfg.Proxy); p {
	case "", "none", "embedded":
		return ""
	}
	return m.cfg.Proxy
}

// Capabilities returns the capabilities a new session for b is requested
// with.
func (m *Manager) Capabilities(b Browser) (selenium.Capabilities, error) {
	o := capsOptions{
		headless:   m.cfg.Headless,
		windowSize: m.cfg.WindowSize,
		extensions: m.extensions,
		networkLog: m.cfg.NetworkLog,
		socksAddr:  m.socksAddr(),
	}
	if m.executorURL == "" && m.cfg.RemoteURL == "" && m.cfg.Grid == config.GridSauce {
		o.sauce = &sauce.Capabilities{
			Platform:         m.cfg.Sauce.Platform,
			ScreenResolution: m.cfg.WindowSize,
		}
	}
	return capabilities(b, o)
}

// executor resolves the WebDriver server address for b, starting the
// backing service when needed.
func (m *Manager) executor(b Browser) (string, *localService, error) {
	if m.executorURL != "" {
		return m.executorURL, nil, nil
	}
	if m.cfg.RemoteURL != "" {
		return m.cfg.RemoteURL, nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", nil, errors.New("driver manager is closed")
	}

	switch m.cfg.Grid {
	case config.GridSauce:
		return sauce.Addr(m.cfg.Sauce.Username, m.cfg.Sauce.AccessKey), nil, nil
	case config.GridDocker:
		if addr, ok := m.gridAddrs[b]; ok {
			return addr, nil, nil
		}
		if m.grid == nil {
			g, err := grid.New()
			if err != nil {
				return "", nil, err
			}
			m.grid = g
		}
		ctx, cancel := context.WithTimeout(context.Background(), gridStartTimeout)
		defer cancel()
		addr, err := m.grid.Start(ctx, string(b))
		if err != nil {
			return "", nil, err
		}
		m.gridAddrs[b] = addr
		return addr, nil, nil
	}

	if ls, ok := m.services[b]; ok {
		return ls.addr, ls, nil
	}
	ls, err := startLocalService(b, m.cfg.DriversPath, m.cfg.Xvfb, m.cfg.WindowSize)
	if err != nil {
		return "", nil, err
	}
	m.services[b] = ls
	return ls.addr, ls, nil
}

// open creates and configures a new session for b.
func (m *Manager) open(b Browser) (selenium.WebDriver, error) {
	wd, err := m.openSession(b)
	if m.observe != nil {
		m.observe(string(b), err == nil)
	}
	return wd, err
}

func (m *Manager) openSession(b Browser) (selenium.WebDriver, error) {
	caps, err := m.Capabilities(b)
	if err != nil {
		return nil, err
	}
	addr, ls, err := m.executor(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b, err)
	}
	wd, err := m.newRemote(caps, addr)
	if err != nil {
		return nil, fmt.Errorf("creating %s session at %s: %w", b, addr, err)
	}
	if err := m.configure(wd, ls); err != nil {
		if qerr := wd.Quit(); qerr != nil {
			glog.Warningf("Quitting misconfigured session: %v", qerr)
		}
		return nil, err
	}
	glog.Infof("Opened %s session %s", b, wd.SessionID())
	return wd, nil
}

func (m *Manager) configure(wd selenium.WebDriver, ls *localService) error {
	if m.cfg.ImplicitWait > 0 {
		if err := wd.SetImplicitWaitTimeout(m.cfg.ImplicitWait); err != nil {
			return fmt.Errorf("setting implicit wait: %w", err)
		}
	}
	if m.cfg.PageLoadTimeout > 0 {
		if err := wd.SetPageLoadTimeout(m.cfg.PageLoadTimeout); err != nil {
			return fmt.Errorf("setting page load timeout: %w", err)
		}
	}
	if m.cfg.ScriptTimeout > 0 {
		if err := wd.SetAsyncScriptTimeout(m.cfg.ScriptTimeout); err != nil {
			return fmt.Errorf("setting script timeout: %w", err)
		}
	}

	switch {
	case ls != nil && ls.screenW > 0:
		if err := wd.ResizeWindow("", ls.screenW, ls.screenH); err != nil {
			glog.Warningf("Resizing window to the frame buffer: %v", err)
		}
	case m.cfg.Headless:
		// Headless windows cannot be maximized; the size comes from the flags.
	default:
		if err := wd.MaximizeWindow(""); err != nil {
			glog.Warningf("Maximizing window: %v", err)
		}
	}
	return nil
}

// Close stops every driver service, grid container and proxy the Manager
// started. Sessions still open in Slots are not quit.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for b, ls := range m.services {
		if err := ls.stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s service: %w", b, err))
		}
	}
	if m.grid != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := m.grid.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.proxy != nil {
		if err := m.proxy.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
