package driver

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"

	"github.com/TylerHight/test-automation-playground/internal/display"
	"github.com/TylerHight/test-automation-playground/internal/download"
)

// driverBinaries maps each backend to the name of its WebDriver executable.
var driverBinaries = map[Browser]string{
	Chrome:  "chromedriver",
	Firefox: "geckodriver",
	Edge:    "msedgedriver",
}

// localService is a WebDriver server process running on this machine.
type localService struct {
	svc  *selenium.Service
	addr string
	// screen is the frame buffer geometry, zero without Xvfb.
	screenW, screenH int
}

func (s *localService) stop() error {
	return s.svc.Stop()
}

// startLocalService launches the driver executable for b on an unused port.
func startLocalService(b Browser, driversPath string, xvfb bool, windowSize string) (*localService, error) {
	name, ok := driverBinaries[b]
	if !ok {
		return nil, fmt.Errorf("no driver executable known for %q", b)
	}
	path, err := download.FindDriver(driversPath, name)
	if err != nil {
		return nil, err
	}
	port, err := pickUnusedPort()
	if err != nil {
		return nil, fmt.Errorf("picking a port for %s: %w", name, err)
	}

	var opts []selenium.ServiceOption
	if glog.V(2) {
		opts = append(opts, selenium.Output(os.Stderr))
	}
	if xvfb {
		w, h, err := parseWindowSize(windowSize)
		if err != nil {
			return nil, err
		}
		opts = append(opts, selenium.StartFrameBufferWithOptions(selenium.FrameBufferOptions{
			ScreenSize: fmt.Sprintf("%dx%dx24", w, h),
		}))
	}

	ls := &localService{}
	switch b {
	case Firefox:
		ls.svc, err = selenium.NewGeckoDriverService(path, port, opts...)
		ls.addr = fmt.Sprintf("http://localhost:%d", port)
	default:
		// msedgedriver shares chromedriver's command line.
		ls.svc, err = selenium.NewChromeDriverService(path, port, opts...)
		ls.addr = fmt.Sprintf("http://localhost:%d/wd/hub", port)
	}
	if err != nil {
		return nil, fmt.Errorf("starting %s from %q: %w", name, path, err)
	}
	glog.Infof("Started %s (%s) at %s", name, path, ls.addr)

	if fb := ls.svc.FrameBuffer(); fb != nil {
		if ls.screenW, ls.screenH, err = display.ScreenSize(fb.Display); err != nil {
			glog.Warningf("Reading frame buffer geometry of display :%s: %v", fb.Display, err)
		}
	}
	return ls, nil
}

func pickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// parseWindowSize parses a "WIDTHxHEIGHT" value.
func parseWindowSize(s string) (width, height int, err error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("window size %q must be of the form WIDTHxHEIGHT", s)
	}
	width, werr := strconv.Atoi(parts[0])
	height, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("window size %q must hold two positive integers", s)
	}
	return width, height, nil
}
