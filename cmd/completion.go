package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/listx/internal/cel"
	"github.com/oakwood-commons/listx/internal/completion"
	"github.com/oakwood-commons/listx/internal/formatter"
	"github.com/oakwood-commons/listx/internal/history"
	"github.com/oakwood-commons/listx/pkg/loader"
)

// completeFilter offers field names and values read from the source file
// named on the command line. Stdin and URL sources are not read.
func completeFilter(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	src, ok := loader.SourceFor(args[0], nil).(loader.FileSource)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, _, err := loadConfig(configFile)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	eng, err := newEngine(rootCtx, cfg, src, history.NewMemory(initialURL("")), &lastRender{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer eng.Close()
	if err := eng.Start(rootCtx); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return completion.Strings(completion.Filter(eng.Index(), toComplete)), cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

func completeWhere(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names, err := cel.Functions()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return completion.Strings(completion.Where(names, toComplete)), cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

func completeOutput(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := append(formatter.Names(), formatURL)
	return completion.Strings(completion.Formats(names, toComplete)), cobra.ShellCompDirectiveNoFileComp
}

func registerCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("filter", completeFilter)
	_ = rootCmd.RegisterFlagCompletionFunc("where", completeWhere)
	_ = rootCmd.RegisterFlagCompletionFunc("output", completeOutput)
}
