package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/source"
)

// SchemaOptions are the flags shared by every command that loads a schema.
type SchemaOptions struct {
	Path        string
	Draft       string
	Meta        bool
	Formats     bool
	KnownOnly   bool
	Refs        string
	Lang        string
	Concurrency int
}

func (o *SchemaOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Path, "schema", "s", "", "Path to the schema (JSON, YAML or MessagePack)")
	cmd.Flags().StringVar(&o.Draft, "draft", "", "Evaluate as this draft (6, 7, 2019-09, 2020-12, next)")
	cmd.Flags().BoolVar(&o.Meta, "meta", false, "Validate the schema against its meta-schema first")
	cmd.Flags().BoolVar(&o.Formats, "formats", false, "Make \"format\" an assertion")
	cmd.Flags().BoolVar(&o.KnownOnly, "known-formats", false, "Fail formats without a checker")
	cmd.Flags().StringVar(&o.Refs, "refs", "", "Directory serving relative references (default: the schema's directory)")
	cmd.Flags().StringVar(&o.Lang, "lang", "", "Message language, e.g. es or ja")
	cmd.Flags().IntVar(&o.Concurrency, "concurrency", 0, "Goroutines per evaluation (0: GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("schema")
}

// fileURI turns a filesystem path into an absolute file URI.
func fileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// load reads the schema and builds evaluation options around a private
// registry that fetches relative references from the refs directory.
func (o *SchemaOptions) load(cli *CLI) (*jsonskema.Schema, *jsonskema.EvaluationOptions, error) {
	uri, err := fileURI(o.Path)
	if err != nil {
		return nil, nil, err
	}
	v, err := readDocument(o.Path)
	if err != nil {
		return nil, nil, err
	}
	s, err := jsonskema.New(v, jsonskema.WithBaseURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", o.Path, err)
	}

	opts := jsonskema.NewEvaluationOptions()
	if o.Draft != "" {
		d, ok := jsonskema.ParseDraft(o.Draft)
		if !ok {
			return nil, nil, fmt.Errorf("unknown draft %q", o.Draft)
		}
		opts.EvaluateAs = d
	}
	opts.ValidateAgainstMetaSchema = o.Meta
	opts.RequireFormatValidation = o.Formats
	opts.OnlyKnownFormats = o.KnownOnly
	opts.MaxConcurrency = o.Concurrency
	opts.Logger = cli.Logger()
	if o.Lang != "" {
		tag, err := language.Parse(o.Lang)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid language %q: %w", o.Lang, err)
		}
		opts.Culture = tag
	}

	refs := o.Refs
	if refs == "" {
		refs = filepath.Dir(o.Path)
	}
	base, err := fileURI(refs)
	if err != nil {
		return nil, nil, err
	}
	opts.SchemaRegistry.Fetch = source.FSFetcher(os.DirFS(refs), base+"/")
	return s, opts, nil
}

// readDocument decodes a file by extension, or JSON from stdin for "-".
func readDocument(path string) (any, error) {
	if path == "-" {
		return source.JSONReader(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := source.Decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func readInstance(in io.Reader, path string) (any, error) {
	if path == "-" {
		return source.JSONReader(in)
	}
	return readDocument(path)
}
