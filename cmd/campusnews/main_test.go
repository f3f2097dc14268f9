package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	dir        string
	configPath string
	storePath  string
	logPath    string
}

// newTestEnv writes a config file whose store and log live in a temp dir.
func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		storePath:  filepath.Join(dir, "reminders.jsonl"),
		logPath:    filepath.Join(dir, "campusnews.log"),
	}

	content := fmt.Sprintf(`
[logging]
level = "info"
format = "json"
output = %q

[storage]
driver = "jsonl"
path = %q

[scheduler]
timezone = "UTC"
poll_spec = "@every 1h"

[session]
user_id = "moderator-1"
moderates = ["news"]
%s`, env.logPath, env.storePath, extra)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0644))
	return env
}

// run executes the CLI with the test config.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--env-file", filepath.Join(e.dir, "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCommandStructure(t *testing.T) {
	root := newRootCmd()

	found := map[string]bool{}
	for _, c := range root.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"version", "config", "serve", "reminder"} {
		assert.True(t, found[expected], "Expected command '%s' not found in rootCmd", expected)
	}

	reminderCmd, _, err := root.Find([]string{"reminder"})
	require.NoError(t, err)

	found = map[string]bool{}
	for _, c := range reminderCmd.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"add", "edit", "list", "show", "remove", "skip", "activate", "deactivate", "next", "import"} {
		assert.True(t, found[expected], "Expected reminder subcommand '%s'", expected)
	}
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t, "")
	out, _, err := env.run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "Git Commit:")
}

func TestConfigValidateCommand(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(env.dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[scheduler]\npoll_spec = \"whenever\"\n"), 0644))

	out, _, err = env.run(t, "config", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, out, "scheduler.poll_spec")
}

// createdID extracts the id from "✅ Reminder created: <id>".
func createdID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "✅ Reminder created: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no reminder id in output: %s", out)
	return ""
}
