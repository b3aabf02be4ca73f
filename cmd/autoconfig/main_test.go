package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `package fixtures

//prop:InfoSettings(build=full)
type BaseTest struct{}

//prop:AutoConfigureJsonTesters
type OrderTest struct {
	BaseTest
}

//prop:AutoConfigureJsonTesters(enabled=false)
type Plain struct{}

//prop:InfoSettings(build=off, git=off)
type Quiet struct{}
`

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("AUTOCONFIG_CONFIG", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures.go"), []byte(fixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/fixtures\n"), 0o644))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestListTypes(t *testing.T) {
	dir := setup(t)
	code, out, _ := runCLI(t, "-dir", dir)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "package example.com/fixtures\n")
	assert.Contains(t, out, "BaseTest (1 annotations)\n")
	assert.Contains(t, out, "OrderTest : BaseTest (1 annotations)\n")
	assert.Contains(t, out, "Quiet (1 annotations)\n")
}

func TestResolveText(t *testing.T) {
	dir := setup(t)

	t.Run("annotations win", func(t *testing.T) {
		code, out, errOut := runCLI(t, "-dir", dir, "-type", "OrderTest")
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "OrderTest -> BaseTest\n")
		assert.Contains(t, out, "management.info.build.mode = full  [Annotations]\n")
		assert.Contains(t, out, "management.info.git.mode = simple  [Annotations]\n")
		assert.Contains(t, out, "test.jsontesters.enabled = true  [Annotations]\n")
		assert.Contains(t, out, "json testers: basic, gojson, json, jsoniter\n")
	})

	t.Run("command line fills the rest", func(t *testing.T) {
		code, out, errOut := runCLI(t, "-dir", dir, "-type", "Plain", "--", "--management.info.git.mode=full")
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "management.info.build.mode = simple  [default]\n")
		assert.Contains(t, out, "management.info.git.mode = full  [cli]\n")
		assert.Contains(t, out, "json testers: disabled\n")
	})

	t.Run("config file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "app.toml")
		require.NoError(t, os.WriteFile(file, []byte("[management.info.git]\nmode = \"off\"\n"), 0o644))

		code, out, errOut := runCLI(t, "-dir", dir, "-type", "Plain", "-config", file)
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "management.info.git.mode = off  [file]\n")
	})
}

func TestResolveFormats(t *testing.T) {
	dir := setup(t)

	code, out, errOut := runCLI(t, "-dir", dir, "-type", "OrderTest", "-format", "json")
	require.Equal(t, 0, code, errOut)
	assert.JSONEq(t, `{
		"management": {"info": {"build": {"mode": "full"}, "git": {"mode": "simple"}}},
		"test": {"jsontesters": {"enabled": true}}
	}`, out)

	code, out, errOut = runCLI(t, "-dir", dir, "-type", "OrderTest", "-format", "yaml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "mode: full")

	code, out, errOut = runCLI(t, "-dir", dir, "-type", "OrderTest", "-format", "toml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `mode = "full"`)
}

func TestInfoOff(t *testing.T) {
	dir := setup(t)
	code, out, errOut := runCLI(t, "-dir", dir, "-type", "Quiet", "-info")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "management.info.build.mode = off  [Annotations]\n")
	assert.Contains(t, out, "\"info\": {}")
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"info": map[string]any{}, "port": 8080}
	require.NoError(t, encode(&buf, "json", v))
	assert.Equal(t, "{\n  \"info\": {},\n  \"port\": 8080\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, encode(&buf, "json", map[string]any{}))
	assert.Equal(t, "{}\n", buf.String())
}

func TestErrors(t *testing.T) {
	dir := setup(t)

	code, _, errOut := runCLI(t, "-dir", dir, "-type", "Missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "type Missing not found")

	code, _, errOut = runCLI(t, "-dir", dir, "-type", "Plain", "-config", filepath.Join(dir, "absent.toml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "absent.toml")

	code, _, _ = runCLI(t, "-format", "xml")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "-undefined")
	assert.Equal(t, 2, code)

	code, _, errOut = runCLI(t, "-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "Usage: autoconfig")

	code, _, _ = runCLI(t, "-dir", filepath.Join(dir, "absent"))
	assert.Equal(t, 1, code)
}

func TestWatch(t *testing.T) {
	dir := setup(t)
	file := filepath.Join(t.TempDir(), "app.toml")
	require.NoError(t, os.WriteFile(file, []byte("[management.info.git]\nmode = \"off\"\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	go func() {
		time.Sleep(1500 * time.Millisecond)
		_ = os.WriteFile(file, []byte("[management.info.git]\nmode = \"full\"\n"), 0o644)
	}()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-no-color", "-dir", dir, "-type", "Plain", "-config", file, "-watch"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "management.info.git.mode = off  [file]\n")
	assert.Contains(t, out, "reloaded (1 changed)\n")
	assert.Contains(t, out, "management.info.git.mode = full  [file]\n")

	t.Run("NeedsFile", func(t *testing.T) {
		code, _, errOut := runCLI(t, "-dir", dir, "-type", "Plain", "-watch")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "watch:")
	})
}
