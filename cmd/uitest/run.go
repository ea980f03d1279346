package main

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	automation "github.com/TylerHight/test-automation-playground"
	"github.com/TylerHight/test-automation-playground/runner"
)

func newRunCmd(load loader) *cobra.Command {
	var (
		tags        string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Run test suites",
		Long: fmt.Sprintf(`Run one or more predefined suites (%v). Each suite gets fresh
browser sessions and writes its own Cucumber JSON and JUnit files. One HTML
report covers every suite of the run.`, runner.Names()),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if concurrency > 0 {
				c := *cfg
				c.Cucumber.Parallel = concurrency > 1
				c.Cucumber.Concurrency = concurrency
				cfg = &c
			}
			if len(args) == 0 {
				args = []string{runner.Smoke.Name}
			}

			suites := make([]runner.Suite, len(args))
			for i, name := range args {
				suite, err := runner.Lookup(name)
				if err != nil {
					return err
				}
				if tags != "" {
					suite.Tags = tags
				}
				suites[i] = suite
			}

			statuses, err := automation.RunAll(cmd.Context(), cfg, suites, automation.WithSummary(cmd.OutOrStdout()))
			var failed []string
			for i, status := range statuses {
				if status != 0 {
					glog.Errorf("Suite %s exited with status %d", suites[i].Name, status)
					failed = append(failed, suites[i].Name)
				}
			}
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				return fmt.Errorf("failed suites: %v", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "tag expression replacing the suite's own")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "scenarios to run at once; overrides cucumber.concurrency")
	return cmd
}
