// Package netlog extracts failed network requests from Chrome performance
// logs, which carry DevTools protocol events.
package netlog

import (
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/network"
	"github.com/golang/glog"
	"github.com/mailru/easyjson"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"
)

// Failure is a request that returned an HTTP error or did not complete.
type Failure struct {
	URL    string
	Method string
	// Status is zero when the request failed below HTTP.
	Status     int64
	StatusText string
	MimeType   string
	Error      string
}

func (f Failure) String() string {
	if f.Status == 0 {
		return fmt.Sprintf("%s %s: %s", f.Method, f.URL, f.Error)
	}
	return fmt.Sprintf("%s %s: %d %s", f.Method, f.URL, f.Status, f.StatusText)
}

// envelope is the wrapper chromedriver puts around each DevTools event.
type envelope struct {
	Message json.RawMessage `json:"message"`
}

// Collect drains the performance log of wd and returns its failures. The
// session must have been created with performance logging enabled.
func Collect(wd selenium.WebDriver) ([]Failure, error) {
	msgs, err := wd.Log(log.Performance)
	if err != nil {
		return nil, fmt.Errorf("reading performance log: %w", err)
	}
	return Parse(msgs), nil
}

// Parse returns the failures recorded in msgs, in log order. Entries that are
// not DevTools events are skipped.
func Parse(msgs []log.Message) []Failure {
	requests := make(map[network.RequestID]*network.Request)
	var failures []Failure
	for _, m := range msgs {
		var env envelope
		if err := json.Unmarshal([]byte(m.Message), &env); err != nil || len(env.Message) == 0 {
			glog.V(2).Infof("Skipping non-DevTools log entry %q", m.Message)
			continue
		}
		var msg cdproto.Message
		if err := easyjson.Unmarshal(env.Message, &msg); err != nil {
			glog.V(2).Infof("Skipping malformed DevTools message: %v", err)
			continue
		}
		ev, ok := decodeEvent(&msg)
		if !ok {
			continue
		}

		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			if ev.Request != nil {
				requests[ev.RequestID] = ev.Request
			}
		case *network.EventResponseReceived:
			if ev.Response == nil || ev.Response.Status < 400 {
				continue
			}
			f := Failure{
				URL:        ev.Response.URL,
				Status:     ev.Response.Status,
				StatusText: ev.Response.StatusText,
				MimeType:   ev.Response.MimeType,
			}
			if req, ok := requests[ev.RequestID]; ok {
				f.Method = req.Method
			}
			failures = append(failures, f)
		case *network.EventLoadingFailed:
			if ev.Canceled {
				continue
			}
			f := Failure{Error: ev.ErrorText}
			if req, ok := requests[ev.RequestID]; ok {
				f.URL, f.Method = req.URL, req.Method
			}
			failures = append(failures, f)
		}
	}
	return failures
}

// decodeEvent returns the typed event for the network methods Parse tracks.
func decodeEvent(msg *cdproto.Message) (easyjson.Unmarshaler, bool) {
	var ev easyjson.Unmarshaler
	switch msg.Method {
	case cdproto.EventNetworkRequestWillBeSent:
		ev = new(network.EventRequestWillBeSent)
	case cdproto.EventNetworkResponseReceived:
		ev = new(network.EventResponseReceived)
	case cdproto.EventNetworkLoadingFailed:
		ev = new(network.EventLoadingFailed)
	default:
		return nil, false
	}
	if err := easyjson.Unmarshal(msg.Params, ev); err != nil {
		glog.V(2).Infof("Skipping %s: %v", msg.Method, err)
		return nil, false
	}
	return ev, true
}
