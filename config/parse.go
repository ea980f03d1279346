package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// reader accumulates the first conversion error so fromViper reads linearly.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("key %q: %w", key, err)
	}
}

func (r *reader) str(key string) string {
	return strings.TrimSpace(cast.ToString(r.v.Get(key)))
}

func (r *reader) boolean(key string) bool {
	b, err := cast.ToBoolE(r.v.Get(key))
	if err != nil {
		r.fail(key, err)
	}
	return b
}

func (r *reader) integer(key string) int {
	val := r.v.Get(key)
	if s, ok := val.(string); ok {
		val = strings.TrimSpace(s)
	}
	i, err := cast.ToIntE(val)
	if err != nil {
		r.fail(key, err)
	}
	return i
}

func (r *reader) seconds(key string) time.Duration {
	n := r.integer(key)
	if n < 0 {
		r.fail(key, fmt.Errorf("negative duration %d", n))
	}
	return time.Duration(n) * time.Second
}

func (r *reader) list(key string) []string {
	var out []string
	for _, s := range strings.Split(r.str(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fromViper(v *viper.Viper) (*Config, error) {
	r := &reader{v: v}
	c := &Config{
		BaseURL:         strings.TrimRight(r.str("baseUrl"), "/"),
		ImplicitWait:    r.seconds("implicitWait"),
		ExplicitWait:    r.seconds("explicitWait"),
		PageLoadTimeout: r.seconds("pageLoadTimeout"),
		ScriptTimeout:   r.seconds("scriptTimeout"),

		Browser:    r.str("browser"),
		Headless:   r.boolean("headless"),
		WindowSize: r.str("windowSize"),
		Highlight:  r.boolean("highlight"),

		ScreenshotsPath: r.str("screenshotsPath"),
		ReportsPath:     r.str("reportsPath"),
		DriversPath:     r.str("driversPath"),

		RemoteURL: r.str("remoteUrl"),
		Grid:      strings.ToLower(r.str("grid")),
		Sauce: Sauce{
			Username:  r.str("sauce.username"),
			AccessKey: r.str("sauce.accessKey"),
			Platform:  r.str("sauce.platform"),
		},
		Proxy:            r.str("proxy"),
		Xvfb:             r.boolean("xvfb"),
		NetworkLog:       r.boolean("networkLog"),
		ChromeExtensions: r.list("chrome.extensions"),

		Cucumber: Cucumber{
			Parallel:          r.boolean("cucumber.parallel"),
			Concurrency:       r.integer("cucumber.concurrency"),
			StepLogging:       r.boolean("cucumber.stepLogging"),
			OrganizeByFeature: r.boolean("cucumber.organizeByFeature"),
		},
		Report: Report{
			Title:  r.str("report.title"),
			Name:   r.str("report.name"),
			Bucket: r.str("report.bucket"),
		},

		MetricsTextfile: r.str("metrics.textfile"),
		Debug:           r.boolean("debug"),
	}
	if r.err != nil {
		return nil, r.err
	}

	switch c.Grid {
	case GridLocal, GridDocker, GridSauce:
	case "":
		c.Grid = GridLocal
	default:
		return nil, fmt.Errorf("key %q: unknown grid %q", "grid", c.Grid)
	}
	if c.Grid == GridSauce && (c.Sauce.Username == "" || c.Sauce.AccessKey == "") {
		return nil, fmt.Errorf("grid %q requires sauce.username and sauce.accessKey", GridSauce)
	}
	if c.Cucumber.Concurrency < 1 {
		c.Cucumber.Concurrency = 1
	}

	c.raw = make(map[string]string)
	for _, k := range v.AllKeys() {
		c.raw[k] = cast.ToString(v.Get(k))
	}
	return c, nil
}

// Concurrency is the number of scenarios the runner executes at once.
func (c *Config) Concurrency() int {
	if !c.Cucumber.Parallel {
		return 1
	}
	return c.Cucumber.Concurrency
}
