package driver

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"
	"github.com/tebeka/selenium/sauce"
)

// Browser identifies one of the supported browser backends.
type Browser string

// The supported backends.
const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Edge    Browser = "edge"
)

// DefaultBrowser is used when the configured identifier is absent or
// unrecognized.
const DefaultBrowser = Chrome

// Browsers lists every supported backend.
var Browsers = []Browser{Chrome, Firefox, Edge}

// ParseBrowser maps a configured identifier onto a backend. Matching is
// case-insensitive and unknown identifiers select DefaultBrowser.
func ParseBrowser(s string) Browser {
	switch b := Browser(strings.ToLower(strings.TrimSpace(s))); b {
	case Chrome, Firefox, Edge:
		return b
	case "":
		return DefaultBrowser
	default:
		glog.Warningf("Unsupported browser %q, falling back to %s", s, DefaultBrowser)
		return DefaultBrowser
	}
}

// edgeOptionsKey is the capability key read by msedgedriver.
const edgeOptionsKey = "ms:edgeOptions"

// edgeOptions is the subset of Microsoft Edge options the framework sets.
type edgeOptions struct {
	Args       []string `json:"args,omitempty"`
	Binary     string   `json:"binary,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
}

// capabilityName is the W3C browserName of the backend.
func (b Browser) capabilityName() string {
	if b == Edge {
		return "MicrosoftEdge"
	}
	return string(b)
}

// args returns the command-line flags for the browser binary.
func (b Browser) args(headless bool, windowSize string) []string {
	if !headless {
		return nil
	}
	w, h, err := parseWindowSize(windowSize)
	if err != nil {
		glog.Warningf("Ignoring window size: %v", err)
		w, h = 1920, 1080
	}
	switch b {
	case Firefox:
		return []string{"-headless", fmt.Sprintf("--width=%d", w), fmt.Sprintf("--height=%d", h)}
	default:
		return []string{"--headless", "--disable-gpu", fmt.Sprintf("--window-size=%d,%d", w, h)}
	}
}

// capsOptions collects everything besides the browser that shapes the
// capabilities of a new session.
type capsOptions struct {
	headless   bool
	windowSize string
	// extensions are packed CRX files, Chrome and Edge only.
	extensions []string
	networkLog bool
	socksAddr  string
	sauce      *sauce.Capabilities
}

// capabilities builds the session capabilities for b.
func capabilities(b Browser, o capsOptions) (selenium.Capabilities, error) {
	caps := selenium.Capabilities{"browserName": b.capabilityName()}
	args := b.args(o.headless, o.windowSize)

	switch b {
	case Chrome:
		cc := chrome.Capabilities{Args: args, W3C: true}
		for _, ext := range o.extensions {
			if err := cc.AddExtension(ext); err != nil {
				return nil, fmt.Errorf("adding extension %q: %w", ext, err)
			}
		}
		caps.AddChrome(cc)
		if o.networkLog {
			caps.SetLogLevel(log.Performance, log.All)
		}
	case Firefox:
		caps.AddFirefox(firefox.Capabilities{Args: args})
	case Edge:
		eo := edgeOptions{Args: args}
		if len(o.extensions) > 0 {
			// msedgedriver takes the same base64 CRX payload as chromedriver.
			var cc chrome.Capabilities
			for _, ext := range o.extensions {
				if err := cc.AddExtension(ext); err != nil {
					return nil, fmt.Errorf("adding extension %q: %w", ext, err)
				}
			}
			eo.Extensions = cc.Extensions
		}
		caps[edgeOptionsKey] = eo
	default:
		return nil, fmt.Errorf("unsupported browser %q", b)
	}

	if o.socksAddr != "" {
		caps.AddProxy(selenium.Proxy{
			Type:         selenium.Manual,
			SOCKS:        o.socksAddr,
			SOCKSVersion: 5,
		})
	}

	if o.sauce != nil {
		sc := *o.sauce
		sc.Browser = b.capabilityName()
		m, err := sc.ToMap()
		if err != nil {
			return nil, fmt.Errorf("obtaining map for sauce.Capabilities: %w", err)
		}
		for k, v := range m {
			caps[k] = v
		}
	}
	return caps, nil
}
