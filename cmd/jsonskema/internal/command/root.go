package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
)

var (
	blue = color.RGB(50, 108, 229)
	red  = color.RGB(229, 50, 50)
)

// CLI holds shared state and is propagated from root to subcommands.
type CLI struct {
	Out    io.Writer
	Err    io.Writer
	Output string
	Debug  bool
}

// NewCLI returns a CLI writing results to out and diagnostics to errOut.
func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{Out: out, Err: errOut, Output: "human"}
}

// Logger returns a logger for engine traces. It discards everything unless
// --debug is set.
func (c *CLI) Logger() logr.Logger {
	if !c.Debug {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(c.Err, prefix, args)
	}, funcr.Options{Verbosity: 2})
}

// Highlight applies a blue color to the given format and arguments.
func Highlight(format string, a ...any) string {
	return blue.Sprintf(format, a...)
}

func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jsonskema",
		Short: "Compile JSON Schemas and evaluate instances against them",
		Long: Highlight("Usage: jsonskema [global options] <subcommand> [args]") + "\n\n" +
			"jsonskema compiles JSON Schema documents (draft 6, draft 7, 2019-09,\n" +
			"2020-12 and next) and evaluates JSON, YAML or MessagePack instances\n" +
			"against them.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cli.Output {
			case "human", "json":
				return nil
			}
			return fmt.Errorf("invalid output format %q: expected human or json", cli.Output)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&cli.Output, "output", "o", "human", "Output format. One of: (human | json)")
	cmd.PersistentFlags().BoolVar(&cli.Debug, "debug", false, "Write engine traces to stderr")
	return cmd
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewValidateCommand(cli),
		NewCompileCommand(cli),
	)
}

func setCobraUsageTemplate(root *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", blue.SprintFunc())
	usageTemplate := strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Examples:`, `{{StyleHeading "Examples:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(root.UsageTemplate())
	root.SetUsageTemplate(usageTemplate)
}

func Execute() {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}

	cli := NewCLI(os.Stdout, os.Stderr)
	root := NewRootCommand(cli)
	setCobraUsageTemplate(root)
	AddCommands(root, cli)

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(cli.Err, msg)
		}
		os.Exit(1)
	}
}
