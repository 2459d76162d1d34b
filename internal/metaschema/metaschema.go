// Package metaschema embeds the published meta-schemas of every supported
// draft, including the per-vocabulary documents of 2019-09 and later.
package metaschema

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	gojson "github.com/goccy/go-json"
)

//go:embed schemas/*.json
var files embed.FS

// Document is one decoded meta-schema keyed by its "$id".
type Document struct {
	ID    string
	Value map[string]any
}

var load = sync.OnceValues(func() ([]Document, error) {
	entries, err := fs.ReadDir(files, "schemas")
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		raw, err := files.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		dec := gojson.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("metaschema %s: %w", e.Name(), err)
		}
		id, _ := m["$id"].(string)
		if id == "" {
			return nil, fmt.Errorf("metaschema %s: missing $id", e.Name())
		}
		docs = append(docs, Document{ID: strings.TrimSuffix(id, "#"), Value: m})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
})

// All returns every embedded meta-schema. The returned values are shared and
// must not be mutated.
func All() []Document {
	docs, err := load()
	if err != nil {
		// The documents are compiled into the binary; failing to decode them
		// is a build defect.
		panic(err)
	}
	return docs
}

// Lookup finds a meta-schema by id; a trailing empty fragment is ignored.
func Lookup(id string) (map[string]any, bool) {
	id = strings.TrimSuffix(id, "#")
	for _, d := range All() {
		if d.ID == id {
			return d.Value, true
		}
	}
	return nil, false
}
