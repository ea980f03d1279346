// Command uitest runs the playground test suites and manages what they need:
// driver executables, configuration and the report server.
//
// Usage:
//
//	uitest run [suite...]        run suites (default: smoke)
//	uitest drivers               download driver executables
//	uitest config                print the effective configuration
//	uitest serve                 serve reports, metrics and page snapshots
//
// glog flags such as -v and -logtostderr are accepted by every command.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/TylerHight/test-automation-playground/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "uitest",
		Short:        "Browser UI tests for the UI Test Automation Playground",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// glog reads its flags from the standard flag set.
			flag.CommandLine.Parse(nil)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			glog.Flush()
		},
	}
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	root.PersistentFlags().StringVar(&configPath, "config", "", "configuration file; defaults to $"+config.EnvPrefix+"_CONFIG or "+config.DefaultPath)

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.Load(configPath)
		}
		return config.FromEnv()
	}
	root.AddCommand(
		newRunCmd(load),
		newDriversCmd(load),
		newConfigCmd(load),
		newServeCmd(load),
	)
	return root
}

// loader returns the configuration selected by the root command's flags.
type loader func() (*config.Config, error)
