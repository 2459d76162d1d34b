package source

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Decode picks a decoder from the file extension: .yaml/.yml (first
// document), .msgpack/.mpk, and JSON otherwise.
func Decode(name string, data []byte) (any, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		docs, err := YAML(data)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("source: %s holds no YAML document", name)
		}
		return docs[0], nil
	case ".msgpack", ".mpk":
		return MsgPack(data)
	default:
		return JSON(data)
	}
}

// File reads and decodes name from fsys.
func File(fsys fs.FS, name string) (any, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	v, err := Decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// FSFetcher returns a reference fetch callback that serves addresses under
// baseURI from fsys. "https://example.com/schemas/a.json" with base
// "https://example.com/schemas/" reads "a.json". Addresses outside the base,
// or without a matching file, yield (nil, nil) so the registry reports the
// reference as not found.
func FSFetcher(fsys fs.FS, baseURI string) func(ctx context.Context, uri string) (any, error) {
	if !strings.HasSuffix(baseURI, "/") {
		baseURI += "/"
	}
	return func(ctx context.Context, uri string) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		uri, _, _ = strings.Cut(uri, "#")
		rel, ok := strings.CutPrefix(uri, baseURI)
		if !ok || rel == "" || !fs.ValidPath(rel) {
			return nil, nil
		}
		for _, name := range []string{rel, rel + ".json", rel + ".yaml"} {
			if _, err := fs.Stat(fsys, name); err == nil {
				return File(fsys, name)
			}
		}
		return nil, nil
	}
}
