package config

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDefault(t *testing.T) {
	c := Default()
	want := &Config{
		BaseURL:         "http://uitestingplayground.com",
		ImplicitWait:    5 * time.Second,
		ExplicitWait:    10 * time.Second,
		PageLoadTimeout: 30 * time.Second,
		ScriptTimeout:   30 * time.Second,
		Browser:         "chrome",
		WindowSize:      "1920x1080",
		Highlight:       true,
		ScreenshotsPath: "target/screenshots",
		ReportsPath:     "target/cucumber-reports",
		DriversPath:     "target/drivers",
		Grid:            GridLocal,
		Proxy:           "none",
		Cucumber:        Cucumber{Concurrency: 4, StepLogging: true},
		Report: Report{
			Title: "UI Playground Automation Report",
			Name:  "Test Execution Report",
		},
	}
	if diff := cmp.Diff(want, c, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("Default() returned diff (-want/+got):\n%s", diff)
	}
	if got := c.Concurrency(); got != 1 {
		t.Errorf("Default().Concurrency() = %d, want 1", got)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		desc  string
		path  string
		check func(t *testing.T, c *Config)
	}{
		{
			desc: "properties",
			path: "testdata/custom.properties",
			check: func(t *testing.T, c *Config) {
				if c.BaseURL != "http://localhost:8080" {
					t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL)
				}
				if c.Browser != "Firefox" {
					t.Errorf("Browser = %q, want the raw value %q", c.Browser, "Firefox")
				}
				if !c.Headless {
					t.Error("Headless = false, want true")
				}
				if c.ExplicitWait != 3*time.Second || c.ImplicitWait != 0 {
					t.Errorf("waits = %v/%v, want 3s/0s", c.ExplicitWait, c.ImplicitWait)
				}
				if diff := cmp.Diff([]string{"ext/one", "ext/two"}, c.ChromeExtensions); diff != "" {
					t.Errorf("ChromeExtensions returned diff (-want/+got):\n%s", diff)
				}
				if got := c.Concurrency(); got != 8 {
					t.Errorf("Concurrency() = %d, want 8", got)
				}
				if !c.Cucumber.OrganizeByFeature {
					t.Error("Cucumber.OrganizeByFeature = false, want true")
				}
				if v, ok := c.Property("team.owner"); !ok || v != "qa" {
					t.Errorf("Property(team.owner) = %q, %t; want %q, true", v, ok, "qa")
				}
			},
		},
		{
			desc: "yaml",
			path: "testdata/custom.yaml",
			check: func(t *testing.T, c *Config) {
				if c.Browser != "edge" || c.ExplicitWait != 7*time.Second {
					t.Errorf("Browser, ExplicitWait = %q, %v; want edge, 7s", c.Browser, c.ExplicitWait)
				}
				if c.Cucumber.StepLogging {
					t.Error("Cucumber.StepLogging = true, want false")
				}
				if c.Report.Bucket != "ui-reports" {
					t.Errorf("Report.Bucket = %q, want %q", c.Report.Bucket, "ui-reports")
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			c, err := Load(tc.path)
			if err != nil {
				t.Fatalf("Load(%q) returned error: %v", tc.path, err)
			}
			tc.check(t, c)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("testdata/does-not-exist.properties"); err == nil {
		t.Fatal("Load() of a missing file returned nil error")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		desc  string
		input string
	}{
		{desc: "malformed integer", input: "explicitWait=ten"},
		{desc: "negative duration", input: "implicitWait=-1"},
		{desc: "malformed boolean", input: "headless=maybe"},
		{desc: "unknown grid", input: "grid=kubernetes"},
		{desc: "sauce without credentials", input: "grid=sauce"},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.input), "properties"); err == nil {
				t.Errorf("Parse(%q) returned nil error", tc.input)
			}
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("UITEST_BROWSER", "edge")
	t.Setenv("UITEST_CUCUMBER_PARALLEL", "true")

	c, err := Parse(strings.NewReader("browser=firefox"), "properties")
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if c.Browser != "edge" {
		t.Errorf("Browser = %q, want the environment value %q", c.Browser, "edge")
	}
	if !c.Cucumber.Parallel {
		t.Error("Cucumber.Parallel = false, want true from the environment")
	}
}

func resetFromEnv(t *testing.T) {
	t.Helper()
	reset := func() {
		envOnce = sync.Once{}
		envCfg, envErr = nil, nil
	}
	reset()
	t.Cleanup(reset)
}

func TestFromEnvWithoutFile(t *testing.T) {
	tests := []struct {
		desc       string
		wait       string
		want       time.Duration
		shouldFail bool
	}{
		{desc: "valid override", wait: "7", want: 7 * time.Second},
		{desc: "malformed override", wait: "ten", shouldFail: true},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			resetFromEnv(t)
			chdir(t, t.TempDir())
			t.Setenv("UITEST_EXPLICITWAIT", tc.wait)

			c, err := FromEnv()
			if tc.shouldFail {
				if err == nil {
					t.Errorf("FromEnv() with UITEST_EXPLICITWAIT=%q returned nil error", tc.wait)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromEnv() returned error: %v", err)
			}
			if c.ExplicitWait != tc.want {
				t.Errorf("ExplicitWait = %v, want %v", c.ExplicitWait, tc.want)
			}
		})
	}
}

func TestDefaultIgnoresEnvironment(t *testing.T) {
	t.Setenv("UITEST_EXPLICITWAIT", "ten")
	t.Setenv("UITEST_BROWSER", "firefox")
	c := Default()
	if c.Browser != "chrome" {
		t.Errorf("Browser = %q, want chrome", c.Browser)
	}
	if c.ExplicitWait != 10*time.Second {
		t.Errorf("ExplicitWait = %v, want 10s", c.ExplicitWait)
	}
}

// chdir changes the working directory for the duration of the test,
// like testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
