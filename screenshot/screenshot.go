// Package screenshot saves the browser viewport of a failing scenario.
//
// Capturing is best effort: every failure is logged and reported as an
// absent path, never returned as an error.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TimestampLayout is the timestamp appended to file names.
const TimestampLayout = "20060102_150405"

// ThumbSuffix is appended to a screenshot's base name for its thumbnail.
const ThumbSuffix = "_thumb"

// maxCollisions bounds the numeric suffixes tried for one base name.
const maxCollisions = 1000

// Option configures a Capturer.
type Option func(*Capturer)

// WithCaption draws the scenario name and time in a banner above the
// capture.
func WithCaption(on bool) Option {
	return func(c *Capturer) { c.caption = on }
}

// WithThumbnail also writes a copy scaled to width pixels; 0 disables it.
func WithThumbnail(width int) Option {
	return func(c *Capturer) { c.thumbWidth = width }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// Capturer writes screenshots under a directory.
type Capturer struct {
	dir        string
	caption    bool
	thumbWidth int
	now        func() time.Time
}

// New returns a Capturer writing under dir.
func New(dir string, opts ...Option) *Capturer {
	c := &Capturer{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sanitize replaces every character other than ASCII letters and digits
// with an underscore.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

// Take captures the viewport of wd to
// <dir>[/<feature>]/<scenario>_<yyyyMMdd_HHmmss>.png and returns the path.
// A name already taken gets a _<n> suffix. It returns "", false when wd is
// nil, the capture fails or the file cannot be written.
func (c *Capturer) Take(wd selenium.WebDriver, scenario, feature string) (string, bool) {
	if wd == nil {
		glog.Error("Driver is nil, cannot take screenshot")
		return "", false
	}
	data, err := wd.Screenshot()
	if err != nil {
		glog.Warningf("WebDriver could not take a screenshot: %v", err)
		return "", false
	}
	now := c.now()

	var img image.Image
	if c.caption || c.thumbWidth > 0 {
		if img, err = png.Decode(bytes.NewReader(data)); err != nil {
			glog.Warningf("Decoding screenshot: %v", err)
		}
	}
	if c.caption && img != nil {
		img = addCaption(img, fmt.Sprintf("%s  %s", scenario, now.Format("2006-01-02 15:04:05")))
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			glog.Warningf("Encoding captioned screenshot: %v", err)
		} else {
			data = buf.Bytes()
		}
	}

	dir := c.dir
	if feature != "" {
		dir = filepath.Join(dir, Sanitize(feature))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		glog.Errorf("Failed to take screenshot: %v", err)
		return "", false
	}

	path, err := writeUnique(dir, Sanitize(scenario)+"_"+now.Format(TimestampLayout), data)
	if err != nil {
		glog.Errorf("Failed to take screenshot: %v", err)
		return "", false
	}
	glog.Infof("Screenshot saved to: %s", path)

	if c.thumbWidth > 0 && img != nil {
		thumb := strings.TrimSuffix(path, ".png") + ThumbSuffix + ".png"
		if err := writeThumbnail(thumb, img, c.thumbWidth); err != nil {
			glog.Warningf("Writing thumbnail %s: %v", thumb, err)
		}
	}
	return path, true
}

// writeUnique creates base.png in dir, or base_1.png, base_2.png, ... when
// the name is taken, without ever replacing an existing file.
func writeUnique(dir, base string, data []byte) (string, error) {
	for n := 0; n < maxCollisions; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		path := filepath.Join(dir, name+".png")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}

const (
	bannerHeight = 20
	// Face7x13 glyphs are 7 pixels wide with an ascent of 11.
	glyphWidth  = 7
	glyphAscent = 11
)

// addCaption returns img with a banner holding text added on top.
func addCaption(img image.Image, text string) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+bannerHeight))
	draw.Draw(out, image.Rect(0, 0, b.Dx(), bannerHeight), image.NewUniform(color.RGBA{R: 0x26, G: 0x32, B: 0x38, A: 0xff}), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, bannerHeight, b.Dx(), b.Dy()+bannerHeight), img, b.Min, draw.Src)

	text = fitCaption(text, (b.Dx()-8)/glyphWidth)
	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, (bannerHeight+glyphAscent)/2),
	}
	d.DrawString(text)
	return out
}

// fitCaption cuts text to at most limit characters. A non-positive limit
// leaves it whole.
func fitCaption(text string, limit int) string {
	if r := []rune(text); limit > 0 && len(r) > limit {
		return string(r[:limit])
	}
	return text
}

// writeThumbnail scales img to width, keeping its aspect ratio.
func writeThumbnail(path string, img image.Image, width int) error {
	b := img.Bounds()
	if b.Dx() == 0 {
		return fmt.Errorf("empty image")
	}
	if width > b.Dx() {
		width = b.Dx()
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
