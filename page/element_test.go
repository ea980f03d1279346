package page

import (
	"testing"

	"github.com/tebeka/selenium"
)

func TestNamesLabel(t *testing.T) {
	names := NewNames(
		Element{ID: "btn", Name: "Dynamic ID Button", Locator: CSS("button.btn-primary")},
		Element{ID: "pageHeader", Locator: CSS("h3")},
		Element{ID: "first", Name: "First", Locator: ID("dup")},
		Element{ID: "second", Name: "Second", Locator: ID("dup")},
	)

	for _, tc := range []struct {
		desc string
		loc  Locator
		want string
	}{
		{desc: "named element", loc: CSS("button.btn-primary"), want: "Dynamic ID Button"},
		{desc: "falls back to the identifier", loc: CSS("h3"), want: "pageHeader"},
		{desc: "later entry wins", loc: ID("dup"), want: "Second"},
		{desc: "unregistered", loc: CSS("h4"), want: UnknownElement},
		{desc: "same value other strategy", loc: XPath("h3"), want: UnknownElement},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			if got := names.Label(tc.loc); got != tc.want {
				t.Errorf("Label(%v) = %q, want %q", tc.loc, got, tc.want)
			}
		})
	}
	if got, want := names.Len(), 3; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestNilNames(t *testing.T) {
	var names *Names
	if got := names.Label(CSS("a")); got != UnknownElement {
		t.Errorf("Label() = %q, want %q", got, UnknownElement)
	}
	if got := names.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestLocatorString(t *testing.T) {
	for _, tc := range []struct {
		loc  Locator
		want string
	}{
		{loc: CSS(".container h1"), want: selenium.ByCSSSelector + "=.container h1"},
		{loc: LinkText("Dynamic ID"), want: selenium.ByLinkText + "=Dynamic ID"},
	} {
		if got := tc.loc.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
