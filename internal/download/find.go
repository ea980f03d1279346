package download

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	"github.com/golang/glog"
)

var archiveExts = map[string]bool{".zip": true, ".gz": true, ".bz2": true}

// FindDriver returns the newest executable named name or name-<version> in
// dir, falling back to name on $PATH.
func FindDriver(dir, name string) (string, error) {
	if dir != "" {
		if p := findBestPath(filepath.Join(dir, name+"*"), name); p != "" {
			return p, nil
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%s not found in %q or $PATH; fetch it with `uitest drivers`", name, dir)
}

// findBestPath picks, among the files matching glob, the one carrying the
// highest version after the binary name. Unversioned names only win when no
// versioned file exists.
func findBestPath(glob, name string) string {
	matches, err := filepath.Glob(glob)
	if err != nil {
		glog.Warningf("Error globbing %q: %s", glob, err)
		return ""
	}

	var (
		best        string
		bestVersion semver.Version
		versioned   bool
	)
	for _, m := range matches {
		if archiveExts[filepath.Ext(m)] {
			continue
		}
		if fi, err := os.Stat(m); err != nil || fi.IsDir() {
			continue
		}
		v, ok := Version(name, filepath.Base(m))
		switch {
		case ok && (!versioned || v.GT(bestVersion)):
			best, bestVersion, versioned = m, v, true
		case !ok && !versioned && filepath.Base(m) == name:
			best = m
		}
	}
	return best
}

// Version extracts the version from a file named <name>-<version>. Versions
// with more than three components keep the rest as build metadata.
func Version(name, file string) (semver.Version, bool) {
	rest := strings.TrimPrefix(file, name)
	if rest == file || rest == "" {
		return semver.Version{}, false
	}
	rest = strings.TrimLeft(rest, "-_")
	rest = strings.TrimPrefix(rest, "v")
	if parts := strings.Split(rest, "."); len(parts) > 3 {
		rest = strings.Join(parts[:3], ".") + "+" + strings.Join(parts[3:], ".")
	}
	v, err := semver.ParseTolerant(rest)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}
