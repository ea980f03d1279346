package main

import (
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TylerHight/test-automation-playground/config"
)

func newConfigCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print every configuration key with its value after defaults and
` + config.EnvPrefix + `_* environment overrides have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(effective(cfg)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// effective returns the configuration as a YAML mapping in key order.
// Secrets are masked.
func effective(cfg *config.Config) *yaml.Node {
	keys := cfg.Keys()
	sort.Strings(keys)
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		v, _ := cfg.Property(k)
		if k == "sauce.accesskey" && v != "" {
			v = "********"
		}
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: v},
		)
	}
	return m
}
