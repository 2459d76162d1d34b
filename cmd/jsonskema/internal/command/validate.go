package command

import (
	"context"
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/jsonskema"
)

type ValidateOptions struct {
	SchemaOptions
	Format string
}

func NewValidateCommand(cli *CLI) *cobra.Command {
	var opts ValidateOptions

	cmd := &cobra.Command{
		Use:   "validate -s <schema> <instance>...",
		Short: "Validate instances against a schema",
		Long: Highlight("jsonskema validate -s <schema> <instance>...") + "\n\n" +
			"Evaluate each instance against the schema. Instances ending in .yaml,\n" +
			".yml, .msgpack or .mpk are decoded accordingly; \"-\" reads JSON from stdin.\n\n" +
			"Examples:\n" +
			"  # Validate one document\n" +
			"  jsonskema validate -s person.schema.json alice.json\n\n" +
			"  # Print the 2020-12 hierarchical output as JSON\n" +
			"  jsonskema validate -s person.schema.json -o json --format hierarchical alice.json\n",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunValidate(cmd.Context(), cmd, cli, opts, args)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Format, "format", "list", "Result shape for JSON output. One of: (flag | list | hierarchical)")
	return cmd
}

type validateResult struct {
	Instance string             `json:"instance"`
	Results  *jsonskema.Results `json:"results"`

	issues jsonskema.Issues
}

func RunValidate(ctx context.Context, cmd *cobra.Command, cli *CLI, opts ValidateOptions, instances []string) error {
	format, ok := jsonskema.ParseOutputFormat(opts.Format)
	if !ok {
		return fmt.Errorf("invalid result format %q", opts.Format)
	}
	schema, evalOpts, err := opts.load(cli)
	if err != nil {
		return err
	}
	evalOpts.OutputFormat = format

	compiled, err := schema.Compile(ctx, evalOpts)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.Path, err)
	}

	results := make([]validateResult, 0, len(instances))
	invalid := false
	for _, name := range instances {
		v, err := readInstance(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		res, err := compiled.Evaluate(ctx, v, evalOpts)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		invalid = invalid || !res.Valid
		results = append(results, validateResult{Instance: name, Results: res, issues: res.Issues()})
	}

	if cli.Output == "json" {
		data, err := gojson.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.Out, string(data))
	} else {
		renderValidate(cli, results)
	}
	if invalid {
		return errors.New("")
	}
	return nil
}

func renderValidate(cli *CLI, results []validateResult) {
	for _, r := range results {
		if r.Results.Valid {
			fmt.Fprintf(cli.Out, "%s %s\n", blue.Sprint("Valid!"), r.Instance)
			continue
		}
		fmt.Fprintf(cli.Out, "%s %s\n", red.Sprint("Error!"), r.Instance)
		for _, it := range r.issues {
			path := it.Path
			if path == "" {
				path = "/"
			}
			fmt.Fprintf(cli.Out, "  %s [%s] %s\n", path, it.Code, it.Message)
		}
	}
}
