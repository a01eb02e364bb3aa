package plugin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDiscover(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writeFile(t, filepath.Join(first, "dinner.lua"), "plugin = {}")
	writeFile(t, filepath.Join(first, "pizza", "plugin.yaml"), "name: pizza-party\nversion: 1.0.0\n")
	writeFile(t, filepath.Join(first, "pizza", "init.lua"), "plugin = {}")
	writeFile(t, filepath.Join(first, "snacks", "plugin.lua"), "plugin = {}")
	writeFile(t, filepath.Join(first, "empty", "README"), "nothing here")
	writeFile(t, filepath.Join(first, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(first, "_disabled.lua"), "plugin = {}")
	writeFile(t, filepath.Join(first, ".hidden", "init.lua"), "plugin = {}")
	writeFile(t, filepath.Join(second, "dinner.lua"), "plugin = {}")

	l := NewLoader(WithPaths(first, second, filepath.Join(first, "missing")))
	plugins, err := l.Discover()
	require.NoError(t, err)

	assert.Equal(t, []string{"dinner", "empty", "pizza-party", "snacks"}, l.ListNames())
	require.Len(t, plugins, 4)

	dinner, ok := l.Get("dinner")
	require.True(t, ok)
	assert.Equal(t, first, dinner.Path, "first path wins")
	assert.Equal(t, filepath.Join(first, "dinner.lua"), dinner.Manifest.MainPath())

	pizza, _ := l.Get("pizza-party")
	assert.Equal(t, "1.0.0", pizza.Manifest.Version)

	snacks, _ := l.Get("snacks")
	assert.Equal(t, "plugin.lua", snacks.Manifest.Main)

	errored := l.Errors()
	require.Len(t, errored, 1)
	assert.Equal(t, "empty", errored[0].Name)
	assert.ErrorIs(t, errored[0].Error, ErrNoEntryPoint)
	assert.Equal(t, StateFailed, errored[0].State)

	shadowed := l.Shadowed()
	require.Len(t, shadowed, 1)
	assert.Equal(t, second, shadowed[0].Path)
	assert.Equal(t, first, shadowed[0].ShadowedBy)
}

func TestLoaderInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad", "plugin.yaml"), "name: Bad Name\n")

	info := Inspect("bad", filepath.Join(dir, "bad"))
	assert.ErrorIs(t, info.Error, ErrInvalidName)
	assert.Equal(t, StateFailed, info.State)
}

func TestLoaderFindPlugin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dinner.lua"), "plugin = {}")
	writeFile(t, filepath.Join(dir, "lunch", "init.lua"), "plugin = {}")

	l := NewLoader(WithPaths())
	l.AddPath(dir)
	assert.Equal(t, []string{dir}, l.Paths())

	info, err := l.FindPlugin("dinner")
	require.NoError(t, err)
	assert.Equal(t, "dinner", info.Name)

	info, err = l.FindPlugin("lunch")
	require.NoError(t, err)
	assert.Equal(t, "init.lua", info.Manifest.Main)

	_, err = l.FindPlugin("brunch")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestDefaultPluginPaths(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	paths := DefaultPluginPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, filepath.Join(xdg, "bly", "plugins"), paths[0])
	for _, p := range paths {
		assert.Equal(t, "plugins", filepath.Base(p))
	}
}
