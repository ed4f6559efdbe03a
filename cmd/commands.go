package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/listx/internal/cel"
	"github.com/oakwood-commons/listx/internal/formatter"
	"github.com/oakwood-commons/listx/internal/history"
	"github.com/oakwood-commons/listx/pkg/engine"
	"github.com/oakwood-commons/listx/pkg/loader"
	"github.com/oakwood-commons/listx/pkg/settings"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print " + settings.CliBinaryName + " version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
		return err
	},
}

// configCmd groups configuration-related subcommands similar to gh-style CLIs.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage " + settings.CliBinaryName + " configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when invoked without a subcommand (gh-style UX)
		return cmd.Help()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, path, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		return writeMergedConfig(cmd.OutOrStdout(), cfg, path)
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains [file|url|-]",
	Short: "Show each filter field with its control kind and values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := startForCommand(cmd, args)
		if err != nil {
			return err
		}
		defer eng.Close()

		var rows [][]string
		for _, f := range eng.Index().Fields() {
			control := f.Control
			if f.Hidden() {
				control = "hidden"
			}
			values := make([]string, len(f.Options))
			for i, o := range f.Options {
				values[i] = fmt.Sprintf("%s (%d)", o.Display, o.Count)
			}
			rows = append(rows, []string{f.Name, f.Label, control, strings.Join(values, ", ")})
		}
		out := formatter.RenderColumns([]string{"field", "label", "control", "values"}, rows, formatter.Options{
			NoColor: noColor,
			Width:   width,
		})
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

var urlCmd = &cobra.Command{
	Use:   "url [file|url|-]",
	Short: "Print the canonical query string for --url-state, --filter and --search",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := startForCommand(cmd, args)
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := applyStateFlags(eng); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), eng.Query())
		return err
	},
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the functions available in --where expressions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := cel.Functions()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
		return err
	},
}

// startForCommand loads the source named by args into a started engine
// seeded from --url-state. Output goes nowhere; callers query the engine.
func startForCommand(cmd *cobra.Command, args []string) (*engine.Engine, error) {
	cfg, _, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	src := loader.SourceFor(sourceArg(args), cmd.InOrStdin())
	eng, err := newEngine(rootCtx, cfg, src, history.NewMemory(initialURL(urlState)), &lastRender{})
	if err != nil {
		return nil, err
	}
	if err := eng.Start(rootCtx); err != nil {
		return nil, err
	}
	return eng, nil
}
