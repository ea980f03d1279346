// Package config loads the immutable configuration snapshot shared by every
// worker of a test run.
//
// The snapshot is read from a Java-style .properties file (or YAML) and every
// key may be overridden from the environment as UITEST_<KEY>, with dots in
// the key replaced by underscores.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override file values.
const EnvPrefix = "UITEST"

// DefaultPath is the configuration file used when UITEST_CONFIG is unset.
const DefaultPath = "resources/config/config.properties"

// Grid backends.
const (
	GridLocal  = "local"
	GridDocker = "docker"
	GridSauce  = "sauce"
)

// Sauce holds the Sauce Labs credentials used when Grid is GridSauce.
type Sauce struct {
	Username  string
	AccessKey string
	Platform  string
}

// Cucumber holds the scenario-engine toggles.
type Cucumber struct {
	Parallel          bool
	Concurrency       int
	StepLogging       bool
	OrganizeByFeature bool
}

// Report holds the report sink settings.
type Report struct {
	Title  string
	Name   string
	Bucket string
}

// Config is a configuration snapshot. It must not be modified after Load
// returns.
type Config struct {
	BaseURL         string
	ImplicitWait    time.Duration
	ExplicitWait    time.Duration
	PageLoadTimeout time.Duration
	ScriptTimeout   time.Duration

	// Browser is the raw browser identifier; see driver.ParseBrowser.
	Browser    string
	Headless   bool
	WindowSize string
	Highlight  bool

	ScreenshotsPath string
	ReportsPath     string
	DriversPath     string

	RemoteURL        string
	Grid             string
	Sauce            Sauce
	Proxy            string
	Xvfb             bool
	NetworkLog       bool
	ChromeExtensions []string

	Cucumber Cucumber
	Report   Report

	MetricsTextfile string
	Debug           bool

	raw map[string]string
}

var defaults = map[string]interface{}{
	"baseUrl":                    "http://uitestingplayground.com",
	"implicitWait":               5,
	"explicitWait":               10,
	"pageLoadTimeout":            30,
	"scriptTimeout":              30,
	"browser":                    "chrome",
	"headless":                   false,
	"windowSize":                 "1920x1080",
	"highlight":                  true,
	"screenshotsPath":            "target/screenshots",
	"reportsPath":                "target/cucumber-reports",
	"driversPath":                "target/drivers",
	"grid":                       GridLocal,
	"proxy":                      "none",
	"cucumber.concurrency":       4,
	"cucumber.stepLogging":       true,
	"cucumber.organizeByFeature": false,
	"report.title":               "UI Playground Automation Report",
	"report.name":                "Test Execution Report",
}

// Default returns the built-in defaults. Unlike Parse it ignores the
// environment.
func Default() *Config {
	c, err := parse(strings.NewReader(""), "properties", false)
	if err != nil {
		// Only reachable if the built-in defaults are malformed.
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return c
}

// Load reads the configuration file at path. The format is taken from the
// file extension; anything but .yaml/.yml is read as properties.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration %q: %w", path, err)
	}
	defer f.Close()

	format := "properties"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	c, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	glog.Infof("Loaded configuration from %q", path)
	return c, nil
}

// Parse reads a configuration in the given viper format from r and applies
// defaults and environment overrides.
func Parse(r io.Reader, format string) (*Config, error) {
	return parse(r, format, true)
}

func parse(r io.Reader, format string, env bool) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return fromViper(v)
}

var (
	envOnce sync.Once
	envCfg  *Config
	envErr  error
)

// FromEnv loads the process-wide snapshot on first call and returns the same
// snapshot afterwards. The file is named by UITEST_CONFIG, or DefaultPath.
// A missing default file yields the defaults with environment overrides
// applied.
func FromEnv() (*Config, error) {
	envOnce.Do(func() {
		path, set := os.LookupEnv(EnvPrefix + "_CONFIG")
		if !set {
			path = DefaultPath
		}
		envCfg, envErr = Load(path)
		if envErr != nil && !set && errors.Is(envErr, fs.ErrNotExist) {
			glog.Warningf("No configuration at %q, using defaults", path)
			envCfg, envErr = Parse(strings.NewReader(""), "properties")
			if envErr != nil {
				envErr = fmt.Errorf("environment overrides: %w", envErr)
			}
		}
	})
	return envCfg, envErr
}

// Property returns the raw value of key, which need not be a recognized key.
// Keys are case-insensitive.
func (c *Config) Property(key string) (string, bool) {
	v, ok := c.raw[strings.ToLower(key)]
	return v, ok
}

// Keys returns every key present in the snapshot, defaults included.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.raw))
	for k := range c.raw {
		keys = append(keys, k)
	}
	return keys
}
