package playground

import (
	"time"

	"github.com/TylerHight/test-automation-playground/page"
)

var (
	dynamicIDButton = page.Element{ID: "dynamicIdButton", Name: "Dynamic ID Button", Locator: page.CSS(dynamicIDButtonSelector)}
	dynamicIDTitle  = page.Element{ID: "pageHeader", Name: "Page Header", Locator: page.CSS(dynamicIDHeaderSelector)}
)

// DynamicIDPage is the scenario whose button gets a new id on every load.
type DynamicIDPage struct {
	*page.Base
}

// NewDynamicIDPage binds the Dynamic ID page to d.
func NewDynamicIDPage(d page.Driver, timeout time.Duration, opts ...page.Option) (*DynamicIDPage, error) {
	b, err := page.New("Dynamic ID Page", d, timeout, []page.Element{dynamicIDButton, dynamicIDTitle}, opts...)
	if err != nil {
		return nil, err
	}
	return &DynamicIDPage{Base: b}, nil
}

// IsOnPage reports whether the page header reads "Dynamic ID".
func (p *DynamicIDPage) IsOnPage() (bool, error) {
	text, err := p.Text(dynamicIDTitle.Locator)
	if err != nil {
		return false, err
	}
	return text == DynamicIDHeader, nil
}

// ClickDynamicIDButton clicks the button, located by class rather than id.
func (p *DynamicIDPage) ClickDynamicIDButton() error {
	return p.Click(dynamicIDButton.Locator)
}

// ButtonText returns the button's caption.
func (p *DynamicIDPage) ButtonText() (string, error) {
	return p.Text(dynamicIDButton.Locator)
}
