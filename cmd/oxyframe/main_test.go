package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxyframe.toml")
	cfg := `
[logging]
level = "error"

[scripting]
dir = "scripts"
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestHeadlessRunSavesAndInspects(t *testing.T) {
	cfgPath := writeConfig(t)
	out := filepath.Join(t.TempDir(), "scene.yaml")

	require.NoError(t, runDemo(context.Background(), cfgPath, runOptions{headless: true, frames: 10, save: out}))

	var buf bytes.Buffer
	require.NoError(t, inspectScene(&buf, cfgPath, out))
	text := buf.String()
	assert.Contains(t, text, `scene "demo": 24 entities`)
	assert.Contains(t, text, "\n  pivot pos=(0.00, 3.00, 0.00) script=spin\n")
	assert.Contains(t, text, "\n    gem.0 pos=")
	assert.Contains(t, text, "mesh=cube material=crate body=box")
	assert.Contains(t, text, "ball pos=")
	assert.Contains(t, text, "body=sphere")
}

func TestRunRejectsUnknownProfileMode(t *testing.T) {
	err := runDemo(context.Background(), writeConfig(t), runOptions{headless: true, frames: 1, profile: "disk"})
	assert.ErrorContains(t, err, `unknown profile mode "disk"`)
}

func TestInspectNeedsOneArgument(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"inspect"})
	assert.Error(t, root.Execute())
}

func TestCheckerPixels(t *testing.T) {
	px := checkerPixels(4, 2)
	require.Len(t, px, 4*4*4)
	assert.Equal(t, byte(200), px[0])
	// x=2, y=0 is in the second cell
	assert.Equal(t, byte(90), px[2*4])
	assert.Equal(t, byte(255), px[3])
}
