package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/glog"

	"github.com/TylerHight/test-automation-playground/hooks"
	"github.com/TylerHight/test-automation-playground/pages/playground"
)

var errNoResponse = errors.New("no HTTP request has been made in this scenario")

type apiSteps struct {
	client *http.Client
	status int
	doc    *goquery.Document
}

func (s *apiSteps) requestHomepage(ctx context.Context) error {
	return s.requestPath(ctx, "/")
}

func (s *apiSteps) requestPath(ctx context.Context, p string) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	base, err := url.Parse(w.Config.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	ref, err := url.Parse(p)
	if err != nil {
		return fmt.Errorf("parsing path %q: %w", p, err)
	}
	u := base.ResolveReference(ref).String()

	if t := w.Config.PageLoadTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	glog.Infof("GET %s", u)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	w.Tracker.Info(fmt.Sprintf("GET %s: %s", u, resp.Status))
	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		s.doc = nil
		return nil
	}
	if s.doc, err = goquery.NewDocumentFromReader(resp.Body); err != nil {
		return fmt.Errorf("parsing %s: %w", u, err)
	}
	return nil
}

func (s *apiSteps) statusIs(ctx context.Context, want int) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	if s.status == 0 {
		return errNoResponse
	}
	return w.Assert.Equal(s.status, want, "HTTP status")
}

func (s *apiSteps) document() (*goquery.Document, error) {
	if s.status == 0 {
		return nil, errNoResponse
	}
	if s.doc == nil {
		return nil, errors.New("the response is not an HTML document")
	}
	return s.doc, nil
}

func (s *apiSteps) titleIs(ctx context.Context, want string) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	doc, err := s.document()
	if err != nil {
		return err
	}
	got := doc.Find("title").First().Text()
	return w.Assert.Title(got, want, fmt.Sprintf(playground.TitleMismatchFormat, want, got))
}

func (s *apiSteps) linkCountIs(ctx context.Context, want int) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	doc, err := s.document()
	if err != nil {
		return err
	}
	return w.Assert.Count(doc.Find(playground.TestLinksSelector).Length(), want, "test scenario links")
}
