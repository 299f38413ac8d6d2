package droidbridge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestKeyMapCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shooter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: shooter
bindings:
  - key: Space
    action: touch
    x: 1700
    y: 900.5
  - key: h
    action: keycode
    keycode: home
  - key: escape
    action: back
`), 0o644))

	out, err := runCmd(t, "keymap", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, `profile "shooter": 3 bindings`)
	assert.Contains(t, out, "1700,900.5")
	assert.Contains(t, out, "home")
	assert.Contains(t, out, "escape")
}

func TestKeyMapCheckInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bindings:\n  - key: q\n    action: explode\n"), 0o644))

	_, err := runCmd(t, "keymap", "check", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")

	_, err = runCmd(t, "keymap", "check")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestServeHelpListsEnvironment(t *testing.T) {
	out, err := runCmd(t, "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "CONTROL_PORT")
	assert.Contains(t, out, "KEYMAP_PROFILE")
}
