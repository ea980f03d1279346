package page

import (
	"fmt"

	"github.com/tebeka/selenium"
)

// UnknownElement is the label of elements missing from a page's table.
const UnknownElement = "Unknown Element"

// Locator finds an element with a WebDriver location strategy.
type Locator struct {
	By    string
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// CSS returns a CSS selector locator.
func CSS(selector string) Locator { return Locator{By: selenium.ByCSSSelector, Value: selector} }

// XPath returns an XPath locator.
func XPath(expr string) Locator { return Locator{By: selenium.ByXPATH, Value: expr} }

// ID returns a locator matching the id attribute.
func ID(id string) Locator { return Locator{By: selenium.ByID, Value: id} }

// LinkText returns a locator matching anchors by their exact text.
func LinkText(text string) Locator { return Locator{By: selenium.ByLinkText, Value: text} }

// Element declares one element of a page: an identifier, an optional
// human-readable name and how to find it.
type Element struct {
	ID      string
	Name    string
	Locator Locator
}

// Label is the name used in logs and reports: Name, or ID when Name is empty.
func (e Element) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Names maps locators to element labels. It is built once per page object
// and only read afterwards.
type Names struct {
	labels map[Locator]string
}

// NewNames builds the cache for a page's element table. Later entries win
// when two elements share a locator.
func NewNames(elems ...Element) *Names {
	n := &Names{labels: make(map[Locator]string, len(elems))}
	for _, e := range elems {
		n.labels[e.Locator] = e.Label()
	}
	return n
}

// Label returns the label registered for l, or UnknownElement.
func (n *Names) Label(l Locator) string {
	if n == nil {
		return UnknownElement
	}
	if label, ok := n.labels[l]; ok {
		return label
	}
	return UnknownElement
}

// Len is the number of registered locators.
func (n *Names) Len() int {
	if n == nil {
		return 0
	}
	return len(n.labels)
}
