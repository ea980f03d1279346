package main

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/TylerHight/test-automation-playground/driver"
	"github.com/TylerHight/test-automation-playground/internal/download"
)

func newDriversCmd(load loader) *cobra.Command {
	var (
		browsers    []string
		dir         string
		all         bool
		withBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "Download WebDriver executables",
		Long: `Download the driver executables sessions are started with into the
drivers directory. Files already present with the expected hash are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.DriversPath
			}
			switch {
			case all:
				browsers = browsers[:0]
				for _, b := range driver.Browsers {
					browsers = append(browsers, string(b))
				}
			case len(browsers) == 0:
				browsers = []string{string(driver.ParseBrowser(cfg.Browser))}
			}

			files, err := download.Files(cmd.Context(), browsers, withBrowser)
			if err != nil {
				return err
			}
			if err := download.DownloadAll(cmd.Context(), files, dir); err != nil {
				return err
			}
			glog.Infof("Drivers for %v are in %s", browsers, dir)
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d files to %s\n", len(files), dir)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&browsers, "browser", nil, "browsers to fetch drivers for; defaults to the configured one")
	cmd.Flags().BoolVar(&all, "all", false, "fetch drivers for every supported browser")
	cmd.Flags().StringVar(&dir, "dir", "", "download directory; defaults to driversPath")
	cmd.Flags().BoolVar(&withBrowser, "with-browser", false, "also fetch a Chromium snapshot")
	return cmd
}
