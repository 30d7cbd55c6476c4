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
)

// runCLI executes the root command with a fresh config and data dir.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: error\n"), 0600))

	renderPlain, renderCollapse, renderEngine, renderHighlight, renderCSS = false, false, "", false, false
	modelsJSON = false
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	out, err := runCLI(t, "## Hi\n- <a>\n", "render")
	require.NoError(t, err)
	assert.Equal(t, "<h2>Hi</h2>\n<ul><li>&lt;a&gt;</li></ul>\n", out)
}

func TestRenderCommandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.md")
	require.NoError(t, os.WriteFile(path, []byte("`x` and **y**"), 0644))

	out, err := runCLI(t, "", "render", path)
	require.NoError(t, err)
	assert.Equal(t, "<p><code>x</code> and <strong>y</strong></p>\n", out)
}

func TestRenderCommandPlain(t *testing.T) {
	out, err := runCLI(t, "`code` and [a link](http://x))", "render", "--plain")
	require.NoError(t, err)
	assert.Equal(t, "code and a link\n", out)
}

func TestRenderCommandCollapse(t *testing.T) {
	out, err := runCLI(t, strings.Repeat("word ", 200), "render", "--collapse")
	require.NoError(t, err)
	assert.Contains(t, out, `class="collapsible"`)
	assert.Contains(t, out, "Show more")
}

func TestRenderCommandEngine(t *testing.T) {
	out, err := runCLI(t, "~~gone~~", "render", "--engine", "commonmark")
	require.NoError(t, err)
	assert.Contains(t, out, "<del>gone</del>")

	_, err = runCLI(t, "x", "render", "--engine", "fancy")
	assert.Error(t, err)
}

func TestRenderCommandCSS(t *testing.T) {
	out, err := runCLI(t, "", "render", "--css")
	require.NoError(t, err)
	assert.Contains(t, out, ".chroma")
}

func TestModelsCommand(t *testing.T) {
	out, err := runCLI(t, "", "models", "--json")
	require.NoError(t, err)

	var models []modelInfo
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 2)
	assert.Equal(t, "chatgpt", models[0].Name)
	assert.True(t, models[0].Default)
	assert.Equal(t, "endpoint", models[1].Kind)
}

func TestConfigCommand(t *testing.T) {
	out, err := runCLI(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "default_model: chatgpt")
	assert.Contains(t, out, "max_message_length: 2000")
}
