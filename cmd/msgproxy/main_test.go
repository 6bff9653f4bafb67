package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Craftserve/msgproxy/rules"
)

const rulesYAML = `
rules:
  - id: restart
    kind: system_chat
    exact: "Server restarting"
    template: "&cRestart at %server_time%"
  - id: greet
    kind: chat
    regex: "^hello (\\w+)$"
    template: "hi $1, you are %player_name%"
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cmd = newValidateCmd()
	switch args[0] {
	case "test":
		cmd = newTestCmd()
	case "version":
		cmd = newVersionCmd()
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args[1:])
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	path := writeRules(t, rulesYAML)
	out, err := run(t, "validate", "--rules", path, "--edits", filepath.Join(filepath.Dir(path), "missing"))
	require.NoError(t, err)
	assert.Equal(t, "rules ok (2 rules, 2 kinds)\n", out)

	path = writeRules(t, "rules:\n  - id: broken\n    kind: nope\n    exact: x\n")
	_, err = run(t, "validate", "--rules", path, "--edits", "")
	assert.Error(t, err)
}

func TestTestCmd(t *testing.T) {
	path := writeRules(t, rulesYAML)
	out, err := run(t, "test", "--rules", path, "--edits", "", "--kind", "chat", "--player", "Notch", "hello world")
	require.NoError(t, err)
	assert.Contains(t, out, "final:    hi world, you are Notch\n")
	assert.Contains(t, out, "rule:     greet (applied greet)\n")

	out, err = run(t, "test", "--rules", path, "--edits", "", "--kind", "system_chat", "nothing here")
	require.NoError(t, err)
	assert.Contains(t, out, "no rule matched")

	_, err = run(t, "test", "--rules", path, "--kind", "nope", "x")
	assert.Error(t, err)
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds([]string{"chat", " title"})
	require.NoError(t, err)
	assert.Equal(t, []rules.TextKind{rules.Chat, rules.Title}, kinds)

	kinds, err = parseKinds([]string{"any"})
	require.NoError(t, err)
	assert.Equal(t, rules.AllKinds(), kinds)

	_, err = parseKinds([]string{"bogus"})
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version=dev")
}
