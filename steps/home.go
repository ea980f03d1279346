package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/TylerHight/test-automation-playground/hooks"
	"github.com/TylerHight/test-automation-playground/pages/playground"
)

var (
	errNoHomePage      = errors.New("the homepage has not been opened in this scenario")
	errNoDynamicIDPage = errors.New("the Dynamic ID page has not been opened in this scenario")
)

type homeSteps struct {
	home    *playground.HomePage
	dynamic *playground.DynamicIDPage
	title   string
	links   []string
}

func (s *homeSteps) homePage() (*playground.HomePage, error) {
	if s.home == nil {
		return nil, errNoHomePage
	}
	return s.home, nil
}

func (s *homeSteps) navigateToHomepage(ctx context.Context) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	glog.Info("Navigating to homepage")
	h, err := playground.NewHomePage(w.Slot, w.Config.BaseURL, w.Timeout(), w.PageOptions()...)
	if err != nil {
		return err
	}
	if err := h.Open(); err != nil {
		return err
	}
	s.home = h
	return nil
}

func (s *homeSteps) viewPageTitle() error {
	h, err := s.homePage()
	if err != nil {
		return err
	}
	glog.Info("Retrieving page title")
	if s.title, err = h.PageTitleText(); err != nil {
		return err
	}
	glog.V(1).Infof("Actual title: %s", s.title)
	return nil
}

func (s *homeSteps) titleDisplayedCorrectly(ctx context.Context) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	glog.Info("Validating the page title content")
	return w.Assert.Title(s.title, playground.HomePageTitle,
		fmt.Sprintf(playground.TitleMismatchFormat, playground.HomePageTitle, s.title))
}

func (s *homeSteps) titleNotEmpty(ctx context.Context) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	glog.Info("Validating that the page title is not empty")
	return w.Assert.NotEmpty(s.title, "Page Title")
}

func (s *homeSteps) descriptionMentions(ctx context.Context, text string) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	h, err := s.homePage()
	if err != nil {
		return err
	}
	desc, err := h.Description()
	if err != nil {
		return err
	}
	return w.Assert.Contains(desc, text, "Page description check failed")
}

func (s *homeSteps) checkTestLinks() error {
	h, err := s.homePage()
	if err != nil {
		return err
	}
	if s.links, err = h.TestLinkTexts(); err != nil {
		return err
	}
	glog.Infof("Found %d test scenario links", len(s.links))
	return nil
}

func (s *homeSteps) seeTestLinks(ctx context.Context) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	return w.Assert.True(len(s.links) > 0, "Test scenario links are present on the page")
}

func (s *homeSteps) seeTestLinkCount(ctx context.Context, n int) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	return w.Assert.Count(len(s.links), n, "test scenario links")
}

func (s *homeSteps) openTestLink(text string) error {
	h, err := s.homePage()
	if err != nil {
		return err
	}
	return h.ClickTestLink(text)
}

func (s *homeSteps) openDynamicID(ctx context.Context) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	h, err := s.homePage()
	if err != nil {
		return err
	}
	s.dynamic, err = h.OpenDynamicID(w.Slot)
	return err
}

func (s *homeSteps) dynamicIDPage(ctx context.Context) (*playground.DynamicIDPage, error) {
	if s.dynamic != nil {
		return s.dynamic, nil
	}
	// Reached through openTestLink rather than openDynamicID.
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if s.home == nil {
		return nil, errNoDynamicIDPage
	}
	s.dynamic, err = playground.NewDynamicIDPage(w.Slot, w.Timeout(), w.PageOptions()...)
	return s.dynamic, err
}

func (s *homeSteps) onDynamicIDPage(ctx context.Context) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	p, err := s.dynamicIDPage(ctx)
	if err != nil {
		return err
	}
	on, err := p.IsOnPage()
	if err != nil {
		return err
	}
	return w.Assert.True(on, "Dynamic ID page is displayed")
}

func (s *homeSteps) clickDynamicIDButton(ctx context.Context) error {
	p, err := s.dynamicIDPage(ctx)
	if err != nil {
		return err
	}
	return p.ClickDynamicIDButton()
}

func (s *homeSteps) buttonReads(ctx context.Context, want string) error {
	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	p, err := s.dynamicIDPage(ctx)
	if err != nil {
		return err
	}
	got, err := p.ButtonText()
	if err != nil {
		return err
	}
	return w.Assert.Equal(got, want, "Dynamic ID button text")
}
