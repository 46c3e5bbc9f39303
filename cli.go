package unconsole

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type CLIConfig struct {
	ConfigFile   string
	Root         string
	Extensions   []string
	Exclude      []string
	ExtraMethods []string
	DryRun       bool
	FailFast     bool
	Jobs         int
	Watch        bool
	Filter       bool
	Markdown     bool
	Undo         bool
	Redo         bool
	NoHistory    bool
	RequireClean bool
	Nvim         bool
	MetricsFile  string
	NoAnimation  bool
	Verbose      bool
	Completion   string
}

var (
	cli    = &CLIConfig{}
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "unconsole",
	Short: "Strip console.log and friends from JavaScript and TypeScript sources.",
	Long: `Strip informational console calls (log, info, debug, time, group, table...) from
.js, .jsx, .ts and .tsx files under ./src before packaging. console.error, console.warn
and console.assert are never touched. Running it twice changes nothing the second time.

Example: unconsole --dry-run`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = NewLogger(cli.Verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cli.Completion != "" {
			return handleCompletion(cmd)
		}

		cfg, err := LoadConfig(cli.ConfigFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		app, err := NewApp(cfg, logger, os.Stdout)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		app.SetTerminal(term.IsTerminal(int(os.Stdout.Fd())))

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return app.Run(ctx)
	},
}

// applyFlags overrides config file values with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = cli.Root
	}
	if flags.Changed("extension") {
		cfg.Extensions = cli.Extensions
	}
	if flags.Changed("exclude") {
		cfg.Exclude = cli.Exclude
	}
	if flags.Changed("method") {
		cfg.ExtraMethods = append(cfg.ExtraMethods, cli.ExtraMethods...)
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = cli.FailFast
	}
	if flags.Changed("jobs") {
		cfg.Jobs = cli.Jobs
	}
	if cli.NoHistory {
		cfg.History = false
	}

	cfg.DryRun = cli.DryRun
	cfg.Watch = cli.Watch
	cfg.Filter = cli.Filter
	cfg.Markdown = cli.Markdown
	cfg.Undo = cli.Undo
	cfg.Redo = cli.Redo
	cfg.RequireClean = cli.RequireClean
	cfg.Nvim = cli.Nvim
	cfg.MetricsFile = cli.MetricsFile
	cfg.NoAnimation = cli.NoAnimation
}

func handleCompletion(cmd *cobra.Command) error {
	switch cli.Completion {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell for completion: %s", cli.Completion)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cli.Completion, "completion", "", "Generate completion script")
	flags.StringVarP(&cli.ConfigFile, "config", "c", "", "Config file (default ./"+DefaultConfigFile+" if present)")
	flags.StringVarP(&cli.Root, "root", "r", "src", "Directory to sanitize")
	flags.StringSliceVarP(&cli.Extensions, "extension", "e", nil, "File extensions to process")
	flags.StringSliceVar(&cli.Exclude, "exclude", nil, "Directory names to skip")
	flags.StringSliceVarP(&cli.ExtraMethods, "method", "m", nil, "Additional console methods to strip")
	flags.BoolVarP(&cli.DryRun, "dry-run", "n", false, "Print diffs instead of writing")
	flags.BoolVar(&cli.FailFast, "fail-fast", false, "Stop at the first file that cannot be read or written")
	flags.IntVarP(&cli.Jobs, "jobs", "j", 1, "Files processed in parallel")
	flags.BoolVarP(&cli.Watch, "watch", "w", false, "Keep running and strip files as they change")
	flags.BoolVar(&cli.Filter, "filter", false, "Strip stdin or the clipboard to stdout")
	flags.BoolVar(&cli.Markdown, "markdown", false, "With --filter, only strip fenced js/ts code blocks")
	flags.BoolVarP(&cli.Undo, "undo", "u", false, "Undo last run")
	flags.BoolVar(&cli.Redo, "redo", false, "Redo last undone run")
	flags.BoolVar(&cli.NoHistory, "no-history", false, "Do not record the run for --undo")
	flags.BoolVar(&cli.RequireClean, "require-clean", false, "Refuse to run on a dirty git worktree")
	flags.BoolVar(&cli.Nvim, "nvim", false, "Write through Neovim buffers")
	flags.StringVar(&cli.MetricsFile, "metrics-file", "", "Write Prometheus counters to this file")
	flags.BoolVar(&cli.NoAnimation, "no-animation", false, "Disable spinner")
	rootCmd.PersistentFlags().BoolVarP(&cli.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
