package plugin

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// PluginInfo is what discovery learns about a plugin without running it.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	State    State
	Error    error

	// ShadowedBy is the path of the plugin that won a name clash against
	// this one, or "".
	ShadowedBy string
}

// Loader finds plugins under its search paths. Earlier paths win when two
// plugins share a name. Entries whose name starts with "." or "_" are
// skipped, so renaming a plugin to _name disables it.
type Loader struct {
	mu       sync.Mutex
	paths    []string
	found    map[string]*PluginInfo
	shadowed []*PluginInfo
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths replaces the default search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a loader over DefaultPluginPaths unless WithPaths is
// given.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths: DefaultPluginPaths(),
		found: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the user plugin directory
// ($XDG_CONFIG_HOME/bly/plugins or ~/.config/bly/plugins) followed by
// ./.bly/plugins.
func DefaultPluginPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "bly", "plugins"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "bly", "plugins"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".bly", "plugins"))
	}
	return paths
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.paths)
}

// AddPath appends a search path.
func (l *Loader) AddPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

// Discover rescans every search path and returns the plugins found,
// sorted by name. Missing paths are skipped.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.found = make(map[string]*PluginInfo)
	l.shadowed = nil
	for _, dir := range l.paths {
		if err := l.scan(dir); err != nil {
			return nil, fmt.Errorf("discover %s: %w", dir, err)
		}
	}
	return sortedInfos(l.found), nil
}

func (l *Loader) scan(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		full := filepath.Join(dir, name)
		switch {
		case e.IsDir():
			l.keep(Inspect(name, full))
		case filepath.Ext(name) == ".lua":
			l.keep(SingleFile(full))
		}
	}
	return nil
}

func (l *Loader) keep(info *PluginInfo) {
	if prev, ok := l.found[info.Name]; ok {
		info.ShadowedBy = prev.Path
		l.shadowed = append(l.shadowed, info)
		return
	}
	l.found[info.Name] = info
}

// SingleFile describes a plugin made of one Lua file named after it.
func SingleFile(luaPath string) *PluginInfo {
	dir, file := filepath.Split(luaPath)
	dir = filepath.Clean(dir)
	name := strings.TrimSuffix(file, ".lua")

	m := NewManifestMinimal(name, dir)
	m.Main = file
	return &PluginInfo{Name: name, Path: dir, Manifest: m}
}

// entryPoints are tried in order for directories without a manifest.
var entryPoints = []string{"init.lua", "plugin.lua"}

// Inspect describes the plugin directory at path. A manifest's name
// replaces name.
func Inspect(name, path string) *PluginInfo {
	info := &PluginInfo{Name: name, Path: path}

	if mp := FindManifest(path); mp != "" {
		m, err := LoadManifest(mp)
		if err != nil {
			info.fail(fmt.Errorf("invalid manifest: %w", err))
			return info
		}
		info.Name, info.Manifest = m.Name, m
		return info
	}

	for _, entry := range entryPoints {
		if _, err := os.Stat(filepath.Join(path, entry)); err == nil {
			info.Manifest = NewManifestMinimal(name, path)
			info.Manifest.Main = entry
			return info
		}
	}
	info.fail(ErrNoEntryPoint)
	return info
}

func (info *PluginInfo) fail(err error) {
	info.Error = err
	info.State = StateFailed
}

// Get returns a plugin found by the last Discover or FindPlugin.
func (l *Loader) Get(name string) (*PluginInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.found[name]
	return info, ok
}

// FindPlugin looks name up without a full scan: first among plugins
// already found, then as <path>/<name>/ and <path>/<name>.lua in each
// search path.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if info, ok := l.found[name]; ok {
		return info, nil
	}
	for _, dir := range l.paths {
		if st, err := os.Stat(filepath.Join(dir, name)); err == nil && st.IsDir() {
			if info := Inspect(name, filepath.Join(dir, name)); info.Error == nil {
				l.found[info.Name] = info
				return info, nil
			}
		}
		if _, err := os.Stat(filepath.Join(dir, name+".lua")); err == nil {
			info := SingleFile(filepath.Join(dir, name+".lua"))
			l.found[name] = info
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// ListNames returns the names found, sorted.
func (l *Loader) ListNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.found))
	for name := range l.found {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Errors returns the plugins found that cannot be loaded.
func (l *Loader) Errors() []*PluginInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*PluginInfo
	for _, info := range sortedInfos(l.found) {
		if info.Error != nil {
			out = append(out, info)
		}
	}
	return out
}

// Shadowed returns plugins hidden by an earlier plugin of the same name
// during the last Discover.
func (l *Loader) Shadowed() []*PluginInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.shadowed)
}

func sortedInfos(m map[string]*PluginInfo) []*PluginInfo {
	out := make([]*PluginInfo, 0, len(m))
	for _, info := range m {
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b *PluginInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
