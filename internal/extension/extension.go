// Package extension packs unpacked browser extensions for installation into
// Chromium-based browsers.
package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	crx3 "github.com/mediabuyerbot/go-crx3"
)

// Pack builds a CRX3 archive from the unpacked extension in dir, or from a
// zipped one, and returns the path of the .crx file written next to it.
func Pack(dir string) (string, error) {
	src := strings.TrimRight(dir, string(filepath.Separator))
	fi, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("extension %q: %w", dir, err)
	}
	if fi.IsDir() {
		if _, err := os.Stat(filepath.Join(src, "manifest.json")); err != nil {
			return "", fmt.Errorf("extension %q has no manifest.json", dir)
		}
	}
	if err := crx3.Extension(src).Pack(nil); err != nil {
		return "", fmt.Errorf("packing extension %q: %w", dir, err)
	}
	crx, err := output(src)
	if err != nil {
		return "", err
	}
	glog.Infof("Packed extension %q into %q", dir, crx)
	return crx, nil
}

// output locates the archive written for src.
func output(src string) (string, error) {
	candidates := []string{
		src + ".crx",
		strings.TrimSuffix(src, filepath.Ext(src)) + ".crx",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("packed extension for %q not found at %v", src, candidates)
}
