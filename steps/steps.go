// Package steps implements the step definitions of the playground features.
//
// Step functions keep no browser state of their own: the session, tracker
// and asserter come from the worker that hooks stores in the scenario
// context. Page objects and HTTP responses are kept per scenario, since godog
// calls Register once for every scenario it runs.
package steps

import (
	"net/http"

	"github.com/cucumber/godog"
)

// Option configures the registered steps.
type Option func(*options)

type options struct {
	client *http.Client
}

// WithHTTPClient sets the client used by the API steps.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// Register adds every step definition to sc.
func Register(sc *godog.ScenarioContext, opts ...Option) {
	o := options{client: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	h := &homeSteps{}
	sc.Step(`^I navigate to the homepage$`, h.navigateToHomepage)
	sc.Step(`^I view the page title$`, h.viewPageTitle)
	sc.Step(`^the page title should be displayed correctly$`, h.titleDisplayedCorrectly)
	sc.Step(`^the page title should not be empty$`, h.titleNotEmpty)
	sc.Step(`^the page description should mention "([^"]*)"$`, h.descriptionMentions)
	sc.Step(`^I check the available test links$`, h.checkTestLinks)
	sc.Step(`^I should see test scenario links on the page$`, h.seeTestLinks)
	sc.Step(`^I should see (\d+) test scenario links$`, h.seeTestLinkCount)
	sc.Step(`^I open the "([^"]*)" test link$`, h.openTestLink)
	sc.Step(`^I open the Dynamic ID page$`, h.openDynamicID)
	sc.Step(`^I should be on the Dynamic ID page$`, h.onDynamicIDPage)
	sc.Step(`^I click the button with the dynamic ID$`, h.clickDynamicIDButton)
	sc.Step(`^the button should read "([^"]*)"$`, h.buttonReads)

	a := &apiSteps{client: o.client}
	sc.Step(`^I request the homepage over HTTP$`, a.requestHomepage)
	sc.Step(`^I request "([^"]*)" over HTTP$`, a.requestPath)
	sc.Step(`^the response status should be (\d+)$`, a.statusIs)
	sc.Step(`^the response title should be "([^"]*)"$`, a.titleIs)
	sc.Step(`^the response should list (\d+) test scenario links$`, a.linkCountIs)
}
