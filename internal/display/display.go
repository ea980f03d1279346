// Package display inspects the X server a browser is rendered on.
package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgbutil"
)

// ScreenSize returns the root screen geometry of the X display d, given
// without the leading colon, e.g. "99" or "99.0".
func ScreenSize(d string) (width, height int, err error) {
	if !IsDisplay(d) {
		return 0, 0, fmt.Errorf("display %q must be of the format 'x' or 'x.y' where x and y are integers", d)
	}
	x, err := xgbutil.NewConnDisplay(":" + d)
	if err != nil {
		return 0, 0, fmt.Errorf("connecting to display %q: %w", d, err)
	}
	defer x.Conn().Close()

	s := x.Screen()
	return int(s.WidthInPixels), int(s.HeightInPixels), nil
}

// IsDisplay reports whether d has the form "x" or "x.y" with integer x and y.
func IsDisplay(d string) bool {
	ds := strings.Split(d, ".")
	if len(ds) > 2 {
		return false
	}
	for _, p := range ds {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}
