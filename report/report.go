// Package report collects scenario outcomes into a hierarchical report and
// renders it as HTML and JSON.
//
// A Sink is created once per process and shared by all workers. Each worker
// holds its own Tracker, which points at the test that worker is running, so
// logging never contends with other workers.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Output file names under Options.Dir.
const (
	HTMLFile = "test-report.html"
	JSONFile = "test-report.json"
)

//go:embed templates/report.html
var templateFS embed.FS

// Options configures a Sink.
type Options struct {
	// Dir receives the report files.
	Dir string
	// Title is the HTML document title; Name the heading.
	Title string
	Name  string
}

// Sink owns every test of the run.
type Sink struct {
	opts Options

	once    sync.Once
	initErr error
	tmpl    *template.Template
	runID   string
	started time.Time

	mu    sync.Mutex
	info  map[string]string
	tests []*Node

	// flushMu serializes flushes; creating tests only takes mu briefly.
	flushMu sync.Mutex
}

// New returns a Sink writing to opts.Dir. Nothing is created on disk until
// Flush.
func New(opts Options) *Sink {
	return &Sink{opts: opts, info: make(map[string]string)}
}

// init runs once, on first use from any worker.
func (s *Sink) init() {
	s.once.Do(func() {
		s.runID = uuid.New().String()
		s.started = time.Now()
		s.tmpl, s.initErr = template.New("report.html").Funcs(template.FuncMap{
			"markdown": renderMarkdown,
			"duration": formatDuration,
		}).ParseFS(templateFS, "templates/report.html")
		s.mu.Lock()
		s.info["OS"] = runtime.GOOS + "/" + runtime.GOARCH
		s.info["Go Version"] = runtime.Version()
		s.mu.Unlock()
		glog.Infof("Report %s initialized", s.runID)
	})
}

// RunID identifies this run in the report.
func (s *Sink) RunID() string {
	s.init()
	return s.runID
}

// SetSystemInfo adds a key/value pair to the report's environment table.
func (s *Sink) SetSystemInfo(key, value string) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info[key] = value
}

// NewTracker returns a tracker for one worker.
func (s *Sink) NewTracker() *Tracker {
	s.init()
	return &Tracker{sink: s}
}

func (s *Sink) add(n *Node) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests = append(s.tests, n)
}

// Tests returns the tests created so far, in creation order.
func (s *Sink) Tests() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Node(nil), s.tests...)
}

// Stats counts tests by status.
type Stats struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Stats summarizes the tests created so far.
func (s *Sink) Stats() Stats {
	var st Stats
	for _, n := range s.Tests() {
		st.Total++
		switch n.Status() {
		case StatusFail:
			st.Failed++
		case StatusSkip:
			st.Skipped++
		default:
			st.Passed++
		}
	}
	return st
}

type entryJSON struct {
	Time    time.Time `json:"time"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
}

type attachmentJSON struct {
	Path      string `json:"path"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type testJSON struct {
	Name        string           `json:"name"`
	Feature     string           `json:"feature,omitempty"`
	URI         string           `json:"uri,omitempty"`
	Description string           `json:"description,omitempty"`
	Status      Status           `json:"status"`
	Authors     []string         `json:"authors,omitempty"`
	Categories  []string         `json:"categories,omitempty"`
	Start       time.Time        `json:"start"`
	Duration    time.Duration    `json:"duration"`
	Entries     []entryJSON      `json:"entries"`
	Attachments []attachmentJSON `json:"attachments,omitempty"`
}

type featureJSON struct {
	Name  string     `json:"name"`
	Tests []testJSON `json:"tests"`
}

type systemInfo struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// document is the whole report; both outputs render it.
type document struct {
	RunID     string        `json:"runId"`
	Title     string        `json:"title"`
	Name      string        `json:"name"`
	Generated time.Time     `json:"generated"`
	Duration  time.Duration `json:"duration"`
	Stats     Stats         `json:"stats"`
	System    []systemInfo  `json:"system"`
	Features  []featureJSON `json:"features"`
}

// relPath rewrites an attachment path relative to the report directory so
// the HTML report can link to it.
func (s *Sink) relPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	dir, err := filepath.Abs(s.opts.Dir)
	if err != nil {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (s *Sink) attachment(p string) attachmentJSON {
	a := attachmentJSON{Path: s.relPath(p)}
	thumb := strings.TrimSuffix(p, filepath.Ext(p)) + "_thumb" + filepath.Ext(p)
	if _, err := os.Stat(thumb); err == nil {
		a.Thumbnail = s.relPath(thumb)
	}
	return a
}

func (s *Sink) snapshot(n *Node) testJSON {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := testJSON{
		Name:        n.name,
		Feature:     n.feature,
		URI:         n.uri,
		Description: n.description,
		Status:      n.status(),
		Authors:     n.authors,
		Categories:  n.categories,
		Start:       n.start,
		Entries:     make([]entryJSON, 0, len(n.entries)),
	}
	if !n.end.IsZero() {
		t.Duration = n.end.Sub(n.start)
	}
	for _, e := range n.entries {
		t.Entries = append(t.Entries, entryJSON(e))
	}
	for _, p := range n.attachments {
		t.Attachments = append(t.Attachments, s.attachment(p))
	}
	return t
}

func (s *Sink) document() document {
	s.mu.Lock()
	tests := append([]*Node(nil), s.tests...)
	keys := make([]string, 0, len(s.info))
	for k := range s.info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	system := make([]systemInfo, 0, len(keys))
	for _, k := range keys {
		system = append(system, systemInfo{Key: k, Value: s.info[k]})
	}
	s.mu.Unlock()

	doc := document{
		RunID:     s.runID,
		Title:     s.opts.Title,
		Name:      s.opts.Name,
		Generated: time.Now(),
		System:    system,
	}
	doc.Duration = doc.Generated.Sub(s.started)

	// Features keep the order in which their first scenario started.
	index := make(map[string]int)
	for _, n := range tests {
		t := s.snapshot(n)
		doc.Stats.Total++
		switch t.Status {
		case StatusFail:
			doc.Stats.Failed++
		case StatusSkip:
			doc.Stats.Skipped++
		default:
			doc.Stats.Passed++
		}
		i, ok := index[t.Feature]
		if !ok {
			i = len(doc.Features)
			index[t.Feature] = i
			doc.Features = append(doc.Features, featureJSON{Name: t.Feature})
		}
		doc.Features[i].Tests = append(doc.Features[i].Tests, t)
	}
	return doc
}

// Flush writes the HTML and JSON reports. It does nothing before the first
// test is created. Every call rewrites both files from the full set of
// tests, so repeated flushes never duplicate entries. The two files are
// written one after the other; a failure may leave them out of step.
func (s *Sink) Flush() error {
	s.init()
	if s.initErr != nil {
		return fmt.Errorf("loading report template: %w", s.initErr)
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if len(s.Tests()) == 0 {
		glog.V(1).Info("No tests to report")
		return nil
	}
	doc := s.document()

	if err := os.MkdirAll(s.opts.Dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, doc); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}
	htmlPath := filepath.Join(s.opts.Dir, HTMLFile)
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0644); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.opts.Dir, JSONFile), data, 0644); err != nil {
		return err
	}
	glog.Infof("Report with %d tests written to %s", doc.Stats.Total, htmlPath)
	return nil
}

// Summary prints a table of every test and the totals to w.
func (s *Sink) Summary(w io.Writer) {
	s.init()
	doc := s.document()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(doc.Name)
	t.AppendHeader(table.Row{"FEATURE", "SCENARIO", "DURATION", "STATUS"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "FEATURE", AutoMerge: true},
		{Name: "SCENARIO", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "DURATION", Align: text.AlignRight},
	})
	for _, f := range doc.Features {
		for _, tc := range f.Tests {
			t.AppendRow(table.Row{f.Name, tc.Name, formatDuration(tc.Duration), strings.ToUpper(string(tc.Status))})
		}
	}
	t.AppendFooter(table.Row{"TOTAL", fmt.Sprintf("%d passed, %d failed, %d skipped", doc.Stats.Passed, doc.Stats.Failed, doc.Stats.Skipped), formatDuration(doc.Duration), ""})

	switch {
	case doc.Stats.Failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case doc.Stats.Total > 0 && doc.Stats.Skipped == doc.Stats.Total:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	case doc.Stats.Total > 0:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleDefault)
	}
	t.Render()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// renderMarkdown renders a scenario description and strips anything unsafe.
func renderMarkdown(md string) template.HTML {
	out := blackfriday.Run([]byte(md), blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.Autolink))
	return template.HTML(bluemonday.UGCPolicy().SanitizeBytes(out))
}
