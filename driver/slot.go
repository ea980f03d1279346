package driver

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

// Slot holds the session of a single worker. A Slot is not safe for
// concurrent use; each worker gets its own from Manager.NewSlot.
type Slot struct {
	m  *Manager
	wd selenium.WebDriver
}

// Init opens a session for the configured browser, quitting the slot's
// previous session first. Creation errors are returned as is; there is no
// retry.
func (s *Slot) Init() error {
	if s.wd != nil {
		if err := s.Quit(); err != nil {
			glog.Warningf("Discarding previous session: %v", err)
		}
	}
	wd, err := s.m.open(s.m.browser)
	if err != nil {
		return fmt.Errorf("initializing driver: %w", err)
	}
	s.wd = wd
	return nil
}

// Get returns the slot's session, opening one on first use.
func (s *Slot) Get() (selenium.WebDriver, error) {
	if s.wd == nil {
		if err := s.Init(); err != nil {
			return nil, err
		}
	}
	return s.wd, nil
}

// Driver returns the current session, or nil when none is open.
func (s *Slot) Driver() selenium.WebDriver {
	return s.wd
}

// Browser is the backend sessions of this slot run on.
func (s *Slot) Browser() Browser {
	return s.m.browser
}

// Quit ends the current session. The slot is empty afterwards even when the
// server reports an error.
func (s *Slot) Quit() error {
	if s.wd == nil {
		return nil
	}
	wd := s.wd
	s.wd = nil
	id := wd.SessionID()
	if err := wd.Quit(); err != nil {
		return fmt.Errorf("quitting session %s: %w", id, err)
	}
	glog.Infof("Closed session %s", id)
	return nil
}
