// Package assertion checks values on behalf of step definitions and records
// every outcome in the scenario report.
//
// Each check logs what it compares, reports exactly one pass or fail entry,
// and on failure logs one error and returns a *Failure. Failures are never
// swallowed; callers return them so the step fails.
package assertion

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/stretchr/testify/assert"
)

// Validation message formats.
const (
	FieldNotNull      = "%s should not be null"
	FieldNotEmpty     = "%s should not be empty"
	FieldContainsText = "%s should contain '%s'"
	FieldEqualsText   = "%s should equal '%s'"
	CountMismatch     = "Expected %d %s but found %d"
)

// Reporter receives one entry per assertion.
type Reporter interface {
	Pass(msg string)
	Fail(msg string)
}

// Logger is where assertions log. glog is used unless WithLogger is given.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type glogLogger struct{}

func (glogLogger) Infof(format string, args ...interface{}) {
	glog.InfoDepth(2, fmt.Sprintf(format, args...))
}

func (glogLogger) Errorf(format string, args ...interface{}) {
	glog.ErrorDepth(2, fmt.Sprintf(format, args...))
}

type nopReporter struct{}

func (nopReporter) Pass(string) {}
func (nopReporter) Fail(string) {}

// Failure is returned by a failed assertion.
type Failure struct {
	// Assertion is the check that failed, e.g. "Title".
	Assertion string
	Message   string
	// Details is the comparison output of the underlying assertion library.
	Details string
}

func (f *Failure) Error() string {
	return f.Message
}

// Option configures an Asserter.
type Option func(*Asserter)

// WithLogger replaces the glog logger.
func WithLogger(l Logger) Option {
	return func(a *Asserter) { a.log = l }
}

// WithObserver registers a function called with the name and outcome of
// every assertion.
func WithObserver(fn func(assertion string, passed bool)) Option {
	return func(a *Asserter) { a.observe = fn }
}

// Asserter is bound to one worker's reporter.
type Asserter struct {
	rep     Reporter
	log     Logger
	observe func(string, bool)
}

// New returns an Asserter reporting to rep. A nil rep discards entries.
func New(rep Reporter, opts ...Option) *Asserter {
	if rep == nil {
		rep = nopReporter{}
	}
	a := &Asserter{rep: rep, log: glogLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Normalize collapses runs of whitespace into one space and trims the
// result.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// recorder collects the messages of a failed testify assertion.
type recorder struct {
	msgs []string
}

func (r *recorder) Errorf(format string, args ...interface{}) {
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func (a *Asserter) check(name, passMsg, failMsg string, fn func(t assert.TestingT) bool) error {
	var r recorder
	ok := fn(&r)
	if a.observe != nil {
		a.observe(name, ok)
	}
	if ok {
		a.rep.Pass(passMsg)
		return nil
	}
	f := &Failure{Assertion: name, Message: failMsg, Details: strings.TrimSpace(strings.Join(r.msgs, "\n"))}
	a.log.Errorf("%s assertion failed: %s", name, failMsg)
	a.rep.Fail(failMsg)
	return f
}

// Title compares page titles after normalizing both. msg describes the
// failure; when empty a default is used.
func (a *Asserter) Title(actual, expected, msg string) error {
	actual, expected = Normalize(actual), Normalize(expected)
	a.log.Infof("Asserting title - Expected: '%s', Actual: '%s'", expected, actual)
	if msg == "" {
		msg = fmt.Sprintf("expected title '%s' but got '%s'", expected, actual)
	}
	return a.check("Title", fmt.Sprintf("Title verified: '%s'", actual), msg, func(t assert.TestingT) bool {
		return assert.Equal(t, expected, actual)
	})
}

// Equal checks that actual equals expected. Values are compared as is.
func (a *Asserter) Equal(actual, expected interface{}, msg string) error {
	a.log.Infof("Asserting equality - Expected: '%v', Actual: '%v'", expected, actual)
	fail := fmt.Sprintf("%s. Expected '%v' but got '%v'", msg, expected, actual)
	return a.check("Equal", fmt.Sprintf("%s: '%v'", msg, actual), fail, func(t assert.TestingT) bool {
		return assert.Equal(t, expected, actual)
	})
}

// Contains checks that the normalized actual contains the normalized
// expected.
func (a *Asserter) Contains(actual, expected, msg string) error {
	actual, expected = Normalize(actual), Normalize(expected)
	a.log.Infof("Asserting '%s' contains '%s'", actual, expected)
	fail := fmt.Sprintf("%s. Expected '%s' to contain '%s'", msg, actual, expected)
	return a.check("Contains", fmt.Sprintf("'%s' contains '%s'", actual, expected), fail, func(t assert.TestingT) bool {
		return assert.Contains(t, actual, expected)
	})
}

// NotEmpty checks that actual has non-whitespace content. field names the
// value in messages.
func (a *Asserter) NotEmpty(actual, field string) error {
	a.log.Infof("Asserting %s is not empty", field)
	actual = Normalize(actual)
	return a.check("NotEmpty", fmt.Sprintf("%s is not empty", field), fmt.Sprintf(FieldNotEmpty, field), func(t assert.TestingT) bool {
		return assert.NotEmpty(t, actual)
	})
}

// NotNil checks that v is not nil.
func (a *Asserter) NotNil(v interface{}, field string) error {
	a.log.Infof("Asserting %s is not null", field)
	return a.check("NotNil", fmt.Sprintf("%s is not null", field), fmt.Sprintf(FieldNotNull, field), func(t assert.TestingT) bool {
		return assert.NotNil(t, v)
	})
}

// True checks cond.
func (a *Asserter) True(cond bool, msg string) error {
	a.log.Infof("Asserting: %s", msg)
	return a.check("True", msg, msg, func(t assert.TestingT) bool {
		return assert.True(t, cond)
	})
}

// Count checks that actual items of kind what were found.
func (a *Asserter) Count(actual, expected int, what string) error {
	a.log.Infof("Asserting count of %s - Expected: %d, Actual: %d", what, expected, actual)
	return a.check("Count", fmt.Sprintf("Found %d %s", actual, what), fmt.Sprintf(CountMismatch, expected, what, actual), func(t assert.TestingT) bool {
		return assert.Equal(t, expected, actual)
	})
}
