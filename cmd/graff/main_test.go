package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fileConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graff.yaml")
	cfg := "store:\n  kind: file\n  path: " + filepath.Join(dir, "sessions") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "graff version")
}

func TestRunThenInspect(t *testing.T) {
	cfg := fileConfig(t)

	_, err := execute(t, "run", "hexagon", "--config", cfg, "--endpoint", "mem://", "--session", "loop", "--quiet")
	require.NoError(t, err)

	out, err := execute(t, "session", "ls", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "- loop")

	out, err = execute(t, "session", "inspect", "loop", "--config", cfg, "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Session loop")
	assert.Contains(t, out, "Pose2Pose2")

	export := filepath.Join(t.TempDir(), "pretty.json")
	_, err = execute(t, "session", "export", "loop", export, "--config", cfg)
	require.NoError(t, err)
	data, err := os.ReadFile(export)
	require.NoError(t, err)
	s, err := codec.UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "loop", s.Name())
	assert.True(t, s.HasVariable("l1"))

	out, err = execute(t, "session", "rm", "loop", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'loop'")
}

func TestBackendCommands_Memory(t *testing.T) {
	// mem:// starts a fresh mock backend per command.
	out, err := execute(t, "status", "--endpoint", "mem://", "--store", "memory", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"robots": 0`)

	out, err = execute(t, "register", "--endpoint", "mem://", "--store", "memory", "--robot", "krakenoid")
	require.NoError(t, err)
	assert.Contains(t, out, "Robot 'krakenoid' registered")

	out, err = execute(t, "mock", "on", "--endpoint", "mem://", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Mock mode on")

	_, err = execute(t, "mock", "maybe", "--endpoint", "mem://", "--store", "memory")
	assert.Error(t, err)

	_, err = execute(t, "query", "x0", "--endpoint", "mem://", "--store", "memory")
	assert.Error(t, err, "queries before a solve are rejected")
}

func TestUnknownScheme(t *testing.T) {
	_, err := execute(t, "status", "--endpoint", "udp://127.0.0.1:1", "--store", "memory")
	assert.Error(t, err)
}
