package report

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
)

// Status is the outcome of a report entry or test.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
	StatusInfo Status = "info"
)

// rank orders statuses by severity; a test takes the most severe status of
// its entries. Info entries do not affect it.
func (s Status) rank() int {
	switch s {
	case StatusFail:
		return 3
	case StatusSkip:
		return 2
	case StatusPass:
		return 1
	}
	return 0
}

// StepStatus maps a step result as reported by godog ("passed", "failed",
// "skipped", "undefined", "pending", "ambiguous") to a Status.
func StepStatus(s string) Status {
	switch strings.ToLower(s) {
	case "passed", "pass":
		return StatusPass
	case "failed", "fail", "ambiguous":
		return StatusFail
	case "skipped", "skip", "undefined", "pending":
		return StatusSkip
	}
	return StatusInfo
}

// Entry is one line logged against a test.
type Entry struct {
	Time    time.Time
	Status  Status
	Message string
}

// Node is one test in the report. Its methods are safe for concurrent use,
// although in practice only the worker running the scenario writes to it.
type Node struct {
	mu sync.Mutex

	name        string
	uri         string
	feature     string
	description string
	authors     []string
	categories  []string
	start, end  time.Time
	entries     []Entry
	attachments []string
}

func newNode(name, uri string, tags []string) *Node {
	n := &Node{name: name, uri: uri, feature: featureName(uri), start: time.Now()}
	n.authors, n.categories = classifyTags(tags)
	return n
}

// featureName is the feature file's base name without extension.
func featureName(uri string) string {
	if uri == "" {
		return ""
	}
	base := filepath.Base(filepath.ToSlash(uri))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// classifyTags splits scenario tags into authors (@author:x or @author=x)
// and categories (everything else), dropping the leading @.
func classifyTags(tags []string) (authors, categories []string) {
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "@")
		if t == "" {
			continue
		}
		if rest, ok := cutAuthor(t); ok {
			if rest != "" {
				authors = append(authors, rest)
			}
			continue
		}
		categories = append(categories, t)
	}
	return authors, categories
}

func cutAuthor(tag string) (string, bool) {
	for _, sep := range []string{"author:", "author="} {
		if strings.HasPrefix(strings.ToLower(tag), sep) {
			return tag[len(sep):], true
		}
	}
	return "", false
}

// Name is the scenario name.
func (n *Node) Name() string { return n.name }

// Feature is the base name of the feature file the scenario came from.
func (n *Node) Feature() string { return n.feature }

// Authors are the names given by @author tags.
func (n *Node) Authors() []string { return append([]string(nil), n.authors...) }

// Categories are the remaining tags, without @.
func (n *Node) Categories() []string { return append([]string(nil), n.categories...) }

func (n *Node) log(s Status, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, Entry{Time: time.Now(), Status: s, Message: stripansi.Strip(msg)})
	n.end = time.Now()
}

func (n *Node) attach(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attachments = append(n.attachments, path)
}

func (n *Node) setDescription(md string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.description = md
}

// Entries returns a copy of the logged entries.
func (n *Node) Entries() []Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Entry(nil), n.entries...)
}

// Attachments returns the attached file paths.
func (n *Node) Attachments() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.attachments...)
}

// Status is the most severe status among the entries; a test with no pass,
// skip or fail entry is a pass.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status()
}

func (n *Node) status() Status {
	st := StatusPass
	worst := 0
	for _, e := range n.entries {
		if r := e.Status.rank(); r > worst {
			worst, st = r, e.Status
		}
	}
	return st
}

// Duration is the time from creation to the last entry.
func (n *Node) Duration() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.end.IsZero() {
		return 0
	}
	return n.end.Sub(n.start)
}
