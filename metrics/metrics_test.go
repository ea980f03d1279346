package metrics

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.RecordScenario("homepage", true, 2*time.Second)
	m.RecordScenario("homepage", false, time.Second)
	m.RecordScenario("homepage", true, time.Second)
	m.RecordStep("pass")
	m.RecordAssertion("Title", false)
	m.RecordScreenshot(true)
	m.RecordSession("chrome", true)

	for _, tc := range []struct {
		desc string
		got  float64
		want float64
	}{
		{desc: "passed scenarios", got: testutil.ToFloat64(m.scenarios.WithLabelValues("homepage", "pass")), want: 2},
		{desc: "failed scenarios", got: testutil.ToFloat64(m.scenarios.WithLabelValues("homepage", "fail")), want: 1},
		{desc: "steps", got: testutil.ToFloat64(m.steps.WithLabelValues("pass")), want: 1},
		{desc: "assertions", got: testutil.ToFloat64(m.assertions.WithLabelValues("Title", "fail")), want: 1},
		{desc: "screenshots", got: testutil.ToFloat64(m.screenshots.WithLabelValues("pass")), want: 1},
		{desc: "sessions", got: testutil.ToFloat64(m.sessions.WithLabelValues("chrome", "pass")), want: 1},
	} {
		if tc.got != tc.want {
			t.Errorf("%s = %v, want %v", tc.desc, tc.got, tc.want)
		}
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("duration histogram series = %d, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordScenario("homepage", true, time.Second)
	path := filepath.Join(t.TempDir(), "uitest.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `uitest_scenarios_total{feature="homepage",result="pass"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile does not contain %q:\n%s", want, data)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordStep("fail")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if want := `uitest_steps_total{status="fail"} 1`; !strings.Contains(rec.Body.String(), want) {
		t.Errorf("response does not contain %q:\n%s", want, rec.Body.String())
	}
}
