package command_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsonskema/cmd/jsonskema/internal/command"
)

const personSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "age": {"$ref": "age.json"}
  },
  "required": ["name"]
}`

const ageSchema = `{"type": "integer", "minimum": 0, "maximum": 150}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	buf := new(bytes.Buffer)
	cli := command.NewCLI(buf, buf)
	root := command.NewRootCommand(cli)
	command.AddCommands(root, cli)
	root.SetArgs(args)
	root.SetOut(buf)
	root.SetErr(buf)
	err := root.Execute()
	return buf.String(), err
}

func TestValidate_Valid(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"person.json": personSchema,
		"age.json":    ageSchema,
		"alice.json":  `{"name": "Alice", "age": 30}`,
	})

	out, err := run(t, "validate", "-s", filepath.Join(dir, "person.json"), filepath.Join(dir, "alice.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Valid!")
}

func TestValidate_InvalidThroughReference(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"person.json": personSchema,
		"age.json":    ageSchema,
		"bob.yaml":    "name: Bob\nage: 200\n",
	})

	out, err := run(t, "validate", "-s", filepath.Join(dir, "person.json"), filepath.Join(dir, "bob.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "Error!")
	assert.Contains(t, out, "/age [maximum] 200 is greater than 150")
}

func TestValidate_JSONOutput(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"person.json": personSchema,
		"age.json":    ageSchema,
		"anon.json":   `{"age": 3}`,
	})

	out, err := run(t, "validate", "-s", filepath.Join(dir, "person.json"), "-o", "json", "--format", "flag", filepath.Join(dir, "anon.json"))
	require.Error(t, err)

	var got []struct {
		Instance string `json:"instance"`
		Results  struct {
			Valid bool `json:"valid"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), "output: %s", out)
	require.Len(t, got, 1)
	assert.False(t, got[0].Results.Valid)
	assert.Equal(t, filepath.Join(dir, "anon.json"), got[0].Instance)
}

func TestValidate_Localized(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"s.json": `{"minimum": 10}`,
		"i.json": `5`,
	})

	out, err := run(t, "validate", "-s", filepath.Join(dir, "s.json"), "--lang", "es", filepath.Join(dir, "i.json"))
	require.Error(t, err)
	assert.Contains(t, out, "5 es menor que 10")
}

func TestValidate_InvalidOutputFlag(t *testing.T) {
	_, err := run(t, "validate", "-s", "x.json", "-o", "yaml", "i.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestCompile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"person.json": personSchema,
		"age.json":    ageSchema,
		"broken.json": `{"$ref": "missing.json"}`,
	})

	out, err := run(t, "compile", "-s", filepath.Join(dir, "person.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled!")
	assert.Contains(t, out, "draft 2020-12")

	out, err = run(t, "compile", "-s", filepath.Join(dir, "broken.json"), "-o", "json")
	require.Error(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got), "output: %s", out)
	assert.Contains(t, got["error"], "reference not found")
}
