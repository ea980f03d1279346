// Package playground holds the page objects of the UI Test Automation
// Playground site.
package playground

// Page content.
const (
	HomePageTitle       = "UI Test Automation Playground"
	DynamicIDLinkText   = "Dynamic ID"
	DynamicIDHeader     = "Dynamic ID"
	DynamicIDButtonText = "Button with Dynamic ID"
	// ExpectedLinkCount is the number of scenarios the home page links to.
	ExpectedLinkCount = 23
)

// Selectors.
const (
	pageTitleSelector       = ".container h1"
	pageDescriptionSelector = ".container p"
	TestLinksSelector       = ".container .row .col-sm h3 a"
	dynamicIDLinkSelector   = "a[href*='dynamicid']"
	classAttrLinkSelector   = "a[href*='classattr']"

	dynamicIDButtonSelector = ".container button.btn-primary"
	dynamicIDHeaderSelector = ".container h3"
)

// Message formats shared by steps and page objects.
const (
	TitleMismatchFormat     = "Page title verification failed: expected '%s' but got '%s'"
	LinkNotFoundFormat      = "Test scenario link not found: %s"
	UnexpectedLinkCountText = "Expected %d links, but found %d"
	HomeTitleMismatch       = "Home page title does not match expected value"
	ElementNotFound         = "Element not found on the page"
	PageLoadTimeout         = "Page failed to load within expected time"
)
