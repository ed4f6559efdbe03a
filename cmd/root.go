package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/formatter"
	"github.com/oakwood-commons/listx/internal/history"
	"github.com/oakwood-commons/listx/internal/limiter"
	"github.com/oakwood-commons/listx/internal/ui"
	"github.com/oakwood-commons/listx/pkg/engine"
	"github.com/oakwood-commons/listx/pkg/loader"
	"github.com/oakwood-commons/listx/pkg/logger"
	"github.com/oakwood-commons/listx/pkg/settings"
)

var (
	interactive   bool
	output        string
	configFile    string
	debug         bool
	noColor       bool
	width         int
	limitRecords  int
	offsetRecords int
	tailRecords   int
	watch         bool

	// Selection state flags, shared by the root, url and domains commands.
	urlState   string
	searchTerm string
	whereExprs []string
	noSearch   bool
	filters    filterFlag
)

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

var rootCtx = context.Background()

// runUI is replaced in tests, which have no terminal.
var runUI = ui.Run

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName + " [file|url|-]",
	Short: "Filter and search lists of items with shareable URL state",
	Long: `listx loads a list of items (JSON, NDJSON, YAML or TOML from a file, a URL or
stdin) and filters it by field values and free-text search. The selection is
encoded as a URL query string, so a filtered view can be reproduced with
--url-state or shared from the interactive UI.`,
	Example: `  listx papers.json
  listx papers.json -f status=published -s "graph"
  listx papers.yaml -u 'q=deep&subject=ml,math' -o json
  curl -s https://example.com/papers.json | listx -i
  listx papers.json --where 'item.year >= 2020' --limit 10`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Map CLI debug flag to log level: debug => zap.DebugLevel (-1), else zap.InfoLevel (0)
		var level int8 = logger.LevelInfo
		if debug {
			level = logger.LevelDebug
		}
		lgr := logger.Get(level)
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

		run := settings.NewCliParams()
		run.MinLogLevel = level
		run.NoColor = noColor
		run.Interactive = interactive
		run.Watch = watch
		run.Output = output
		run.Width = width
		run.ConfigFile = resolveConfigPath(configFile)
		if len(args) == 1 {
			run.Source = args[0]
		}
		rootCtx = settings.IntoContext(logger.WithLogger(context.Background(), lgr), run)
	},
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	limitCfg := limiter.Config{
		Limit:  limitRecords,
		Offset: offsetRecords,
		Tail:   tailRecords,
	}
	if err := limitCfg.Validate(); err != nil {
		return fmt.Errorf("record limiting error: %w", err)
	}
	if !validOutput(output) {
		return fmt.Errorf("unknown output format %q (expected %s|%s)", output, strings.Join(formatter.Names(), "|"), formatURL)
	}
	if len(args) == 0 && stdinIsTerminal() {
		return cmd.Help()
	}

	cfg, path, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	lgr := logger.FromContext(rootCtx)
	lgr.V(1).Info("config loaded", "path", path)

	arg := sourceArg(args)
	src := loader.SourceFor(arg, cmd.InOrStdin())
	hist := history.NewMemory(initialURL(urlState))

	format := output
	if !cmd.Flags().Changed("output") && cfg.Output.Format != "" {
		format = cfg.Output.Format
	}
	opts := outputOptions{
		Format:  format,
		Columns: cfg.Output.Columns,
		NoColor: noColor || cfg.Output.NoColor,
		Width:   width,
		Limit:   limitCfg,
	}

	ctx := rootCtx
	if watch {
		if _, ok := src.(loader.FileSource); !ok {
			return fmt.Errorf("--watch needs a file source, got %s", loader.Describe(src))
		}
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	if interactive {
		return runInteractive(ctx, cmd.OutOrStdout(), cfg, src, hist, opts)
	}
	return runOnce(ctx, cmd.OutOrStdout(), cfg, src, hist, opts)
}

// runOnce renders the selected items and, with --watch, renders again each
// time the source file changes.
func runOnce(ctx context.Context, w io.Writer, cfg config.Config, src loader.Source, hist *history.Memory, opts outputOptions) error {
	r := &lastRender{}
	eng, err := newEngine(ctx, cfg, src, hist, r)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	current := eng
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		current.Close()
	}()

	if err := eng.Start(ctx); err == nil {
		if err := applyStateFlags(eng); err != nil {
			return err
		}
	}
	if err := writeResults(w, eng, r, opts); err != nil || !watch {
		return err
	}

	fs := src.(loader.FileSource)
	return watchSource(ctx, fs.Path, func() {
		mu.Lock()
		defer mu.Unlock()
		next := &lastRender{}
		fresh, err := newEngine(ctx, cfg, src, hist, next)
		if err != nil {
			logger.FromContext(ctx).Error(err, "reload failed")
			return
		}
		_ = fresh.Start(ctx)
		current.Close()
		current = fresh
		fmt.Fprintln(w)
		_ = writeResults(w, fresh, next, opts)
	})
}

// runInteractive starts the terminal UI and prints the final URL on exit.
func runInteractive(ctx context.Context, w io.Writer, cfg config.Config, src loader.Source, hist *history.Memory, opts outputOptions) error {
	format := opts.Format
	if format == formatURL {
		format = formatter.FormatTable
	}
	m := ui.NewModel(ui.Options{
		NoColor: opts.NoColor,
		Format:  format,
		Columns: opts.Columns,
		Width:   opts.Width,
	})

	eng, err := newEngine(ctx, cfg, src, hist, m)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err == nil {
		if err := applyStateFlags(eng); err != nil {
			eng.Close()
			return err
		}
	}
	m.Attach(eng)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reloads chan *engine.Engine
	if watch {
		reloads = make(chan *engine.Engine)
		fs := src.(loader.FileSource)
		go func() {
			_ = watchSource(ctx, fs.Path, func() {
				fresh, err := newEngine(ctx, cfg, src, hist, m)
				if err != nil {
					logger.FromContext(ctx).Error(err, "reload failed")
					return
				}
				_ = fresh.Start(ctx)
				select {
				case reloads <- fresh:
				case <-ctx.Done():
					fresh.Close()
				}
			})
		}()
	}

	if err := runUI(ctx, m, reloads); err != nil {
		return err
	}
	// A --watch reload may have replaced a failed engine with a working one.
	if err := m.Engine().Err(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, m.Engine().URL())
	return err
}

// newEngine builds an engine from the flags. Start is left to the caller so
// the renderer sees a load failure.
func newEngine(ctx context.Context, cfg config.Config, src loader.Source, hist history.Channel, r engine.Renderer) (*engine.Engine, error) {
	lgr := logger.FromContext(ctx).WithName("engine").WithValues(logger.SourceKey, loader.Describe(src))
	opts := []engine.Option{
		engine.WithRenderer(r),
		engine.WithSource(src),
		engine.WithHistory(hist),
		engine.WithLogger(lgr),
	}
	if noSearch {
		opts = append(opts, engine.WithSearchEnabled(false))
	}
	for _, expr := range whereExprs {
		opts = append(opts, engine.WithWhere(expr))
	}
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}

// applyStateFlags layers --filter and --search over the state decoded from
// --url-state. Each step goes through the engine, so the result is exactly
// what the same clicks would produce.
func applyStateFlags(eng *engine.Engine) error {
	for _, spec := range filters.specs {
		if len(spec.Values) == 0 {
			if err := eng.ClearField(spec.Field); err != nil {
				return err
			}
			continue
		}
		for _, v := range spec.Values {
			if err := eng.Toggle(spec.Field, v, true); err != nil {
				return err
			}
		}
	}
	if searchTerm != "" {
		return eng.SearchNow(searchTerm)
	}
	return nil
}

// initialURL turns --url-state (a query string, "?query" or a full URL) into
// the first history entry.
func initialURL(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return engine.DefaultPath
	}
	if i := strings.IndexByte(state, '?'); i >= 0 {
		state = state[i+1:]
	}
	if state == "" {
		return engine.DefaultPath
	}
	return engine.DefaultPath + "?" + state
}

func sourceArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "-"
}

// cliVersionString builds a human-readable version string for CLI output and Cobra's --version flag.
func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, go %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

func init() { //nolint:gochecknoinits
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config-file", "", "path to a YAML config file (fields, engine and output settings)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.IntVar(&width, "width", 0, "output width in columns (default: terminal width)")
	pf.StringVarP(&urlState, "url-state", "u", "", "initial selection as a URL query string, e.g. 'q=graph&status=published'")
	pf.StringVarP(&searchTerm, "search", "s", "", "search text applied after --url-state")
	pf.VarP(&filters, "filter", "f", "select values for a field, e.g. status=published,draft (repeatable; 'field=' clears it)")
	pf.StringArrayVar(&whereExprs, "where", nil, "CEL expression every item must satisfy, e.g. 'item.year >= 2020' (repeatable; see 'listx functions')")
	pf.BoolVar(&noSearch, "no-search", false, "ignore search text when filtering")

	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start the interactive UI")
	rootCmd.Flags().StringVarP(&output, "output", "o", formatter.FormatTable, "output format: table|list|json|yaml|html|url")
	rootCmd.Flags().IntVar(&limitRecords, "limit", 0, "limit total number of items displayed")
	rootCmd.Flags().IntVar(&offsetRecords, "offset", 0, "skip the first N items")
	rootCmd.Flags().IntVar(&tailRecords, "tail", 0, "show the last N items (mutually exclusive with --limit; ignores --offset)")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "reload and render again when the source file changes")

	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(functionsCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
	registerCompletions()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
