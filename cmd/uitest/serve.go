package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	automation "github.com/TylerHight/test-automation-playground"
	"github.com/TylerHight/test-automation-playground/config"
	"github.com/TylerHight/test-automation-playground/driver"
	"github.com/TylerHight/test-automation-playground/metrics"
)

func newServeCmd(load loader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports, metrics and on-demand page snapshots",
		Long: `Serve the report directory at /, screenshots at /screenshots/ and the
metrics of snapshot sessions at /metrics. /snapshot?url=... opens a browser
session, loads the page (the base URL by default) and returns a PNG of it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			env, err := automation.New(cmd.Context(), cfg, automation.WithSummary(nil))
			if err != nil {
				return err
			}
			defer env.Drivers.Close()

			srv := &http.Server{Addr: addr, Handler: newMux(cfg, env.Drivers, env.Metrics)}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdown)
			}()

			glog.Infof("Listening on %s", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newMux(cfg *config.Config, drivers *driver.Manager, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(cfg.ReportsPath)))
	mux.Handle("/screenshots/", http.StripPrefix("/screenshots/", http.FileServer(http.Dir(cfg.ScreenshotsPath))))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/snapshot", snapshotHandler(cfg.BaseURL, drivers))
	mux.HandleFunc("/_ah/health", healthCheckHandler)
	return mux
}

// snapshotHandler loads a page in a fresh session and responds with its
// screenshot.
func snapshotHandler(baseURL string, drivers *driver.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := r.URL.Query().Get("url")
		if u == "" {
			u = baseURL
		}
		slot := drivers.NewSlot()
		wd, err := slot.Get()
		if err != nil {
			http.Error(w, fmt.Sprintf("Error starting a browser session: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := slot.Quit(); err != nil {
				glog.Warningf("Quitting snapshot session: %v", err)
			}
		}()

		if err := wd.Get(u); err != nil {
			http.Error(w, fmt.Sprintf("wd.Get(%q) returned error: %v", u, err), http.StatusBadGateway)
			return
		}
		data, err := wd.Screenshot()
		if err != nil {
			http.Error(w, fmt.Sprintf("wd.Screenshot() returned error: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		if _, err := w.Write(data); err != nil {
			glog.Warningf("Writing snapshot of %s: %v", u, err)
		}
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}
