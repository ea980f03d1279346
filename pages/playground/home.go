package playground

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"

	"github.com/TylerHight/test-automation-playground/page"
)

// ErrLinkNotFound is returned when the home page has no scenario link with
// the requested text.
var ErrLinkNotFound = errors.New("test scenario link not found")

var (
	pageTitle       = page.Element{ID: "pageTitle", Name: "Page Title", Locator: page.CSS(pageTitleSelector)}
	pageDescription = page.Element{ID: "pageDescription", Name: "Page Description", Locator: page.CSS(pageDescriptionSelector)}
	testLinks       = page.Element{ID: "testLinks", Name: "Test Links", Locator: page.CSS(TestLinksSelector)}
	dynamicIDLink   = page.Element{ID: "dynamicIdLink", Name: "Dynamic ID Link", Locator: page.CSS(dynamicIDLinkSelector)}
	classAttrLink   = page.Element{ID: "classAttrLink", Locator: page.CSS(classAttrLinkSelector)}
)

var homeElements = []page.Element{pageTitle, pageDescription, testLinks, dynamicIDLink, classAttrLink}

// HomePage is the playground's landing page listing every test scenario.
type HomePage struct {
	*page.Base
	baseURL string
	timeout time.Duration
	opts    []page.Option
}

// NewHomePage binds the home page to d.
func NewHomePage(d page.Driver, baseURL string, timeout time.Duration, opts ...page.Option) (*HomePage, error) {
	b, err := page.New("Home Page", d, timeout, homeElements, opts...)
	if err != nil {
		return nil, err
	}
	return &HomePage{Base: b, baseURL: baseURL, timeout: timeout, opts: opts}, nil
}

// Open navigates to the base URL.
func (h *HomePage) Open() error {
	return h.Navigate(h.baseURL)
}

// PageTitleText returns the main heading.
func (h *HomePage) PageTitleText() (string, error) {
	return h.Text(pageTitle.Locator)
}

// Description returns the introductory paragraph.
func (h *HomePage) Description() (string, error) {
	return h.Text(pageDescription.Locator)
}

// TestLinkCount returns the number of scenario links.
func (h *HomePage) TestLinkCount() (int, error) {
	links, err := h.FindAll(testLinks.Locator)
	if err != nil {
		return 0, err
	}
	return len(links), nil
}

// TestLinkTexts returns the trimmed text of every scenario link in page
// order.
func (h *HomePage) TestLinkTexts() ([]string, error) {
	links, err := h.FindAll(testLinks.Locator)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(links))
	for _, l := range links {
		text, err := h.TextOf(l, testLinks.Label())
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

// ClickTestLink clicks the scenario link whose trimmed text equals text.
func (h *HomePage) ClickTestLink(text string) error {
	links, err := h.FindAll(testLinks.Locator)
	if err != nil {
		return err
	}
	var match selenium.WebElement
	for _, l := range links {
		got, err := l.Text()
		if err != nil {
			return fmt.Errorf("reading link text: %w", err)
		}
		if strings.TrimSpace(got) == text {
			match = l
			break
		}
	}
	if match == nil {
		glog.Errorf(LinkNotFoundFormat, text)
		return fmt.Errorf("%w: %s", ErrLinkNotFound, text)
	}
	return h.ClickElement(match, "Test Link: "+text)
}

// OpenDynamicID follows the Dynamic ID link.
func (h *HomePage) OpenDynamicID(d page.Driver) (*DynamicIDPage, error) {
	if err := h.Click(dynamicIDLink.Locator); err != nil {
		return nil, err
	}
	return NewDynamicIDPage(d, h.timeout, h.opts...)
}
