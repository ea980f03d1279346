// Package runner defines the predefined test suites and runs them with godog.
package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cucumber/godog"
	"github.com/golang/glog"

	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/hooks"
	"github.com/TylerHight/test-automation-playground/steps"
)

// FeaturesDir holds the feature files of every suite.
const FeaturesDir = "features"

// Suite selects the scenarios of one run.
type Suite struct {
	Name string
	// Paths are feature files or directories.
	Paths []string
	// Tags is a godog tag expression.
	Tags string
}

// The predefined suites.
var (
	Smoke    = Suite{Name: "smoke", Paths: []string{FeaturesDir}, Tags: "@smoke"}
	HomePage = Suite{Name: "homepage", Paths: []string{FeaturesDir}, Tags: "@smoke,@homepage"}
	API      = Suite{Name: "api", Paths: []string{filepath.Join(FeaturesDir, "api")}, Tags: "@api"}
)

// Suites indexes the predefined suites by name.
var Suites = map[string]Suite{
	Smoke.Name:    Smoke,
	HomePage.Name: HomePage,
	API.Name:      API,
}

// Names returns the predefined suite names, sorted.
func Names() []string {
	names := make([]string, 0, len(Suites))
	for n := range Suites {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the predefined suite called name.
func Lookup(name string) (Suite, error) {
	s, ok := Suites[strings.ToLower(name)]
	if !ok {
		return Suite{}, fmt.Errorf("unknown suite %q, want one of %s", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Options returns the godog options of s under cfg: console output plus
// Cucumber JSON and JUnit files below cfg.ReportsPath.
func (s Suite) Options(cfg *config.Config) *godog.Options {
	formats := []string{
		"pretty",
		"cucumber:" + filepath.Join(cfg.ReportsPath, "json", s.Name+".json"),
		"junit:" + filepath.Join(cfg.ReportsPath, "junit", s.Name+".xml"),
	}
	return &godog.Options{
		Format:      strings.Join(formats, ","),
		Paths:       s.Paths,
		Tags:        s.Tags,
		Concurrency: cfg.Concurrency(),
		Output:      os.Stdout,
		Strict:      true,
	}
}

// Run executes s with the lifecycle objects of env and returns godog's exit
// status: 0 when every scenario passed.
func (s Suite) Run(env *hooks.Env, opts ...steps.Option) int {
	return s.run(env, s.Options(env.Config), opts...)
}

func (s Suite) run(env *hooks.Env, o *godog.Options, opts ...steps.Option) int {
	for _, f := range []string{"json", "junit"} {
		if err := os.MkdirAll(filepath.Join(env.Config.ReportsPath, f), 0755); err != nil {
			glog.Errorf("Creating report directory: %v", err)
		}
	}
	glog.Infof("Running suite %s (tags %q, concurrency %d)", s.Name, o.Tags, o.Concurrency)
	ts := godog.TestSuite{
		Name:                 s.Name,
		TestSuiteInitializer: env.InitializeTestSuite,
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			env.InitializeScenario(sc)
			steps.Register(sc, opts...)
		},
		Options: o,
	}
	return ts.Run()
}

// RunTo is Run with console output sent to w instead of standard output.
func (s Suite) RunTo(w io.Writer, env *hooks.Env, opts ...steps.Option) int {
	o := s.Options(env.Config)
	o.Output = w
	o.NoColors = true
	return s.run(env, o, opts...)
}
