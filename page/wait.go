package page

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
)

// ErrTimeout is wrapped by every TimeoutError.
var ErrTimeout = errors.New("timed out waiting for element")

// TimeoutError reports an element that did not reach a state in time.
type TimeoutError struct {
	Element string
	State   string
	Timeout time.Duration
	// Err is the WebDriver's own report, when it gave one.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not become %s within %v", e.Element, e.State, e.Timeout)
}

// Unwrap lets errors.Is match ErrTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Element states waited for.
const (
	stateVisible   = "visible"
	stateClickable = "clickable"
)

// isMissing reports whether err says the element is absent or detached from
// the document.
func isMissing(err error) bool {
	var se *selenium.Error
	if errors.As(err, &se) {
		return se.Err == "no such element" || se.Err == "stale element reference"
	}
	msg := err.Error()
	return strings.Contains(msg, "no such element") || strings.Contains(msg, "stale element reference")
}

// elementIn returns a condition that holds once l resolves to an element in
// state. The element is stored in *found.
func elementIn(l Locator, state string, found *selenium.WebElement) selenium.Condition {
	return func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(l.By, l.Value)
		if err != nil {
			if isMissing(err) {
				return false, nil
			}
			return false, err
		}
		ok, err := el.IsDisplayed()
		if err != nil {
			if isMissing(err) {
				return false, nil
			}
			return false, err
		}
		if ok && state == stateClickable {
			if ok, err = el.IsEnabled(); err != nil {
				if isMissing(err) {
					return false, nil
				}
				return false, err
			}
		}
		if ok {
			*found = el
		}
		return ok, nil
	}
}
