package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDemoFlow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
node "math" "n1" {
  set {
    a = 2
    b = 3
  }
}

node "math" "n2" {
  set {
    b = 4
  }
}

connect {
  from = "n1.c"
  to   = "n2.a"
}
`), 0644))
	return path
}

func TestAppSingleRun(t *testing.T) {
	var out bytes.Buffer
	cfg, err := NewConfig(Config{
		FlowPath:  writeDemoFlow(t),
		LogFormat: "text",
		LogLevel:  "error",
	})
	require.NoError(t, err)

	a, err := NewApp(&out, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	var result map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 5.0, result["n1"]["outputs"]["c"])
	assert.Equal(t, -1.0, result["n1"]["outputs"]["d"])
	assert.Equal(t, 5.0, result["n2"]["inputs"]["a"])
	assert.Equal(t, 9.0, result["n2"]["outputs"]["c"])
}

func TestAppEmptyFlow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.hcl"), []byte(""), 0644))

	var out bytes.Buffer
	cfg, err := NewConfig(Config{FlowPath: dir, LogFormat: "json", LogLevel: "error"})
	require.NoError(t, err)

	a, err := NewApp(&out, cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Run(context.Background()))
}

func TestNewAppBadFlowPath(t *testing.T) {
	var out bytes.Buffer
	cfg, err := NewConfig(Config{
		FlowPath:  filepath.Join(t.TempDir(), "missing.hcl"),
		LogFormat: "text",
		LogLevel:  "info",
	})
	require.NoError(t, err)

	_, err = NewApp(&out, cfg, nil)
	assert.ErrorContains(t, err, "loading flow definition")
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.ErrorContains(t, err, "FlowPath")
}
