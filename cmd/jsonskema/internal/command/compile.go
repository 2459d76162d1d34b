package command

import (
	"context"
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func NewCompileCommand(cli *CLI) *cobra.Command {
	var opts SchemaOptions

	cmd := &cobra.Command{
		Use:   "compile -s <schema>",
		Short: "Check that a schema compiles",
		Long: Highlight("jsonskema compile -s <schema>") + "\n\n" +
			"Compile the schema and resolve every static reference without\n" +
			"evaluating an instance. Malformed keywords, unresolvable or circular\n" +
			"references and vocabulary problems are reported.\n",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunCompile(cmd.Context(), cli, opts)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

type compileResult struct {
	Schema string `json:"schema"`
	Draft  string `json:"draft,omitempty"`
	Nodes  int    `json:"nodes,omitempty"`
	Error  string `json:"error,omitempty"`
}

func RunCompile(ctx context.Context, cli *CLI, opts SchemaOptions) error {
	schema, evalOpts, err := opts.load(cli)
	if err != nil {
		return err
	}
	out := compileResult{Schema: opts.Path}
	compiled, cerr := schema.Compile(ctx, evalOpts)
	if cerr != nil {
		out.Error = cerr.Error()
	} else {
		out.Draft = compiled.Draft().String()
		out.Nodes = compiled.Nodes()
	}

	if cli.Output == "json" {
		data, err := gojson.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.Out, string(data))
	} else if cerr != nil {
		fmt.Fprintf(cli.Out, "%s %s\n  %s\n", red.Sprint("Error!"), opts.Path, out.Error)
	} else {
		fmt.Fprintf(cli.Out, "%s %s (draft %s, %d nodes)\n", blue.Sprint("Compiled!"), opts.Path, out.Draft, out.Nodes)
	}
	if cerr != nil {
		return errors.New("")
	}
	return nil
}
