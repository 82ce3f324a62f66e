package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/silkgen/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
		Long: `Configuration is read from silkgen.yaml in the search paths, SILKGEN_*
environment variables (e.g. SILKGEN_FOOTPRINT_PITCH) and command-line flags,
in increasing order of precedence.`,
	}

	show := &cobra.Command{
		Use:          "show",
		Short:        "Print the resolved configuration as YAML",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if used := a.loader.GetConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
			}
			return config.WriteYAML(cmd.OutOrStdout(), a.config)
		},
	}

	initCmd := &cobra.Command{
		Use:          "init [FILE]",
		Short:        "Write a configuration file with the default settings",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := ""
			if len(args) == 1 {
				filename = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := config.GenerateDefaultConfigFile(filename, force); err != nil {
				return err
			}
			if filename == "" {
				filename = config.ConfigFileName + ".yaml"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filename)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	paths := &cobra.Command{
		Use:   "paths",
		Short: "List the directories searched for silkgen.yaml",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.GetConfigSearchPaths() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	}

	cmd.AddCommand(show, initCmd, paths)
	return cmd
}
