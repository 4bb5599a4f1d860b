package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/search"
)

const vueComponent = `<template>
  <div>{{ msg }}</div>
</template>
<script>
export default {
  data() {
    return { msg: this.initial }
  },
  computed: {
    upper() { return "x" }
  }
}
</script>
`

const helpers = `function load(url) {
  return this.fetch(url)
}

function save(v) {
  return v
}
`

const dupes = `function load(url) {
  return this.fetch(url)
}

function load(path) {
  return path
}
`

// workspace writes files under a temp dir and makes it the working directory.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Fields(s)
}

func TestSearchFunction(t *testing.T) {
	workspace(t, map[string]string{"src/helpers.js": helpers, "src/App.vue": vueComponent})

	out, _, err := execute(t, "-f", "src", "--function", "load")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "helpers.js")}, lines(out))

	out, _, err = execute(t, "src/helpers.js", "--function", "save")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSearchAliases(t *testing.T) {
	workspace(t, map[string]string{"src/App.vue": vueComponent})

	out, _, err := execute(t, "-f", "src/App.vue", "--fn", "data", "--exp", "ThisExpression")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "App.vue")}, lines(out))
}

func TestSearchProperty(t *testing.T) {
	workspace(t, map[string]string{"src/App.vue": vueComponent})

	out, _, err := execute(t, "-f", "src/App.vue", "-p", "computed")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, _, err = execute(t, "-f", "src/App.vue", "-p", "data", "-l")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "App.vue") + ":6:2"}, lines(out))
}

func TestSearchMultipleLocations(t *testing.T) {
	workspace(t, map[string]string{"dupes.js": dupes})

	out, _, err := execute(t, "dupes.js", "--function", "load", "-m", "-l")
	require.NoError(t, err)
	assert.Equal(t, []string{"dupes.js:1:0"}, lines(out))
}

func TestSearchJSON(t *testing.T) {
	workspace(t, map[string]string{"helpers.js": helpers})

	out, _, err := execute(t, "helpers.js", "--function", "load", "--json")
	require.NoError(t, err)

	var hits []search.Hit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "helpers.js", hits[0].Source)
	assert.Equal(t, "load", hits[0].Name)
	assert.Equal(t, string(api.ThisExpression), hits[0].Expression)
	assert.Equal(t, 1, hits[0].Line)
}

func TestSearchUsageFaults(t *testing.T) {
	workspace(t, map[string]string{"helpers.js": helpers})

	_, _, err := execute(t, "helpers.js")
	assert.ErrorIs(t, err, api.ErrNoTarget)

	_, _, err = execute(t, "helpers.js", "--function", "a", "-p", "b")
	assert.ErrorIs(t, err, api.ErrConflictingTargets)

	_, _, err = execute(t, "helpers.js", "--function", "a", "-e", "Nope")
	assert.ErrorIs(t, err, api.ErrUnknownExpression)

	_, _, err = execute(t, "--function", "a")
	assert.ErrorIs(t, err, errNoInput)
}

func TestSearchFailuresReported(t *testing.T) {
	workspace(t, map[string]string{"helpers.js": helpers, "tree.json": "[1, 2"})

	out, stderr, err := execute(t, ".", "--function", "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files")
	assert.Equal(t, []string{"helpers.js"}, lines(out))
	assert.Contains(t, stderr, "tree.json")
}

func TestSearchConfigFile(t *testing.T) {
	workspace(t, map[string]string{
		"dupes.js": dupes,
		".ast-search.hcl": `multiple = true
expression = "ThisExpression"
`,
	})

	out, _, err := execute(t, "dupes.js", "--function", "load", "-l")
	require.NoError(t, err)
	assert.Equal(t, []string{"dupes.js:1:0"}, lines(out))

	// An explicit flag wins over the file.
	_, _, err = execute(t, "dupes.js", "--function", "load", "-e", "Unknown")
	assert.ErrorIs(t, err, api.ErrUnknownExpression)
}

func TestSearchDebugWritesTree(t *testing.T) {
	dir := workspace(t, map[string]string{"helpers.js": helpers})

	out, _, err := execute(t, "helpers.js", "-d")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(dir, "output.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FunctionDeclaration"`)
	assert.Contains(t, string(data), `"Program"`)
}

func TestDump(t *testing.T) {
	workspace(t, map[string]string{"helpers.js": helpers})

	out, _, err := execute(t, "dump", "helpers.js", "-o", "-", "--path", "$.body[1].id.name")
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"save"}, names)

	_, _, err = execute(t, "dump")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	dir := workspace(t, map[string]string{"helpers.js": helpers})
	db := filepath.Join(dir, "hits.db")

	_, _, err := execute(t, "helpers.js", "--function", "load", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "report", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "LOCATION")
	assert.Contains(t, out, "helpers.js:1:0")
	assert.Contains(t, out, "ThisExpression")

	out, _, err = execute(t, "report", "--db", db, "--source", "other.js", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, _, err = execute(t, "report")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ast-search "+Version+"\n", out)
}
