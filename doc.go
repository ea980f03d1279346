/*
Package automation is a browser UI test-automation framework for the UI Test
Automation Playground, built on WebDriver and Cucumber-style features.

A run is assembled from a handful of lifecycle objects: a driver manager
handing out one WebDriver session per worker, a report sink collecting every
scenario, a screenshot capturer and a metrics registry. New builds them from a
configuration snapshot, and the runner package executes a suite with them:

	package main

	import (
		"context"
		"os"

		"github.com/golang/glog"

		automation "github.com/TylerHight/test-automation-playground"
		"github.com/TylerHight/test-automation-playground/config"
		"github.com/TylerHight/test-automation-playground/runner"
	)

	func main() {
		cfg, err := config.FromEnv()
		if err != nil {
			glog.Exit(err)
		}
		status, err := automation.Run(context.Background(), cfg, runner.Smoke)
		if err != nil {
			glog.Exit(err)
		}
		os.Exit(status)
	}

Step definitions get at the session of the scenario they run in through
hooks.WorkerFrom, and drive the site through the page objects in
pages/playground:

	w, err := hooks.WorkerFrom(ctx)
	if err != nil {
		return err
	}
	home, err := playground.NewHomePage(w.Slot, w.Config.BaseURL, w.Timeout(), w.PageOptions()...)
	if err != nil {
		return err
	}
	if err := home.Open(); err != nil {
		return err
	}
	title, err := home.PageTitleText()
	if err != nil {
		return err
	}
	return w.Assert.Title(title, playground.HomePageTitle, "")

Sessions are created by local driver executables (see the drivers command of
cmd/uitest), a Selenium grid in Docker, Sauce Labs or any remote WebDriver
server, depending on the configuration.
*/
package automation
