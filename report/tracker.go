package report

import (
	"github.com/golang/glog"
)

// Tracker is a worker's reference to the test it is currently reporting on.
// It is owned by one worker and is not safe for concurrent use; logging
// without an active test does nothing.
type Tracker struct {
	sink *Sink
	cur  *Node
}

// CreateTest opens a new test in the report and makes it current. tags are
// the scenario tags; uri is the feature file the scenario came from.
func (t *Tracker) CreateTest(name, uri string, tags []string) *Node {
	n := newNode(name, uri, tags)
	t.sink.add(n)
	t.cur = n
	glog.Infof("Created test in report: %s", name)
	return n
}

// Test is the current test, or nil.
func (t *Tracker) Test() *Node { return t.cur }

// Remove forgets the current test. It stays in the report.
func (t *Tracker) Remove() { t.cur = nil }

// SetDescription sets the current test's description, written in Markdown.
func (t *Tracker) SetDescription(md string) {
	if t.cur != nil {
		t.cur.setDescription(md)
	}
}

// LogStep records a finished step with its godog status.
func (t *Tracker) LogStep(text, status string) {
	if t.cur == nil {
		return
	}
	s := StepStatus(status)
	t.cur.log(s, "Step: "+text)
	glog.V(1).Infof("Logged step %q as %s", text, s)
}

// Log appends an entry with status s.
func (t *Tracker) Log(s Status, msg string) {
	if t.cur == nil {
		return
	}
	t.cur.log(s, msg)
}

func (t *Tracker) Pass(msg string) { t.Log(StatusPass, msg) }
func (t *Tracker) Fail(msg string) { t.Log(StatusFail, msg) }
func (t *Tracker) Info(msg string) { t.Log(StatusInfo, msg) }
func (t *Tracker) Skip(msg string) { t.Log(StatusSkip, msg) }

// Attach adds a file, typically a screenshot, to the current test.
func (t *Tracker) Attach(path string) {
	if t.cur == nil || path == "" {
		return
	}
	t.cur.attach(path)
}
