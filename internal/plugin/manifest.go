package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/dshills/bly/internal/plugin/security"
)

// Manifest describes a plugin on disk. It is read from plugin.yaml or
// plugin.json next to the entry point.
type Manifest struct {
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"`
	Description string            `yaml:"description"`
	Author      string            `yaml:"author"`
	Main        string            `yaml:"main"` // Relative path to the Lua entry point (default: "init.lua")
	Multiple    bool              `yaml:"multiple"`
	Requires    map[string]string `yaml:"requires"` // Plugin name -> semver constraint
	Options     map[string]any    `yaml:"options"`  // Passed to the register function

	// Capabilities lists what the plugin may do. Nil means security.Default().
	Capabilities []string `yaml:"capabilities"`

	// Internal: path to the plugin directory
	path string
}

// Validation errors.
var (
	ErrMissingName = errors.New("manifest: name is required")
	ErrInvalidName = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrInvalidMain = errors.New("manifest: main must be a .lua file")
)

// manifestFiles are checked in order.
var manifestFiles = []string{"plugin.yaml", "plugin.yml", "plugin.json"}

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// LoadManifest loads and validates a plugin manifest from a file.
// JSON manifests parse as YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindManifest returns the manifest file in dir, or "" if there is none.
func FindManifest(dir string) string {
	for _, name := range manifestFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// NewManifestMinimal creates a minimal manifest for plugins without one.
func NewManifestMinimal(name, path string) *Manifest {
	return &Manifest{
		Name: name,
		Main: "init.lua",
		path: path,
	}
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if m.Version != "" {
		if _, err := semver.StrictNewVersion(m.Version); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
		}
	}
	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	for dep, c := range m.Requires {
		if _, err := semver.NewConstraint(c); err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidConstraint, dep, c)
		}
	}
	if _, err := security.ParseAll(m.Capabilities); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// Grants returns the capabilities the manifest asks for.
func (m *Manifest) Grants() []security.Capability {
	if m.Capabilities == nil {
		return security.Default()
	}
	caps, err := security.ParseAll(m.Capabilities)
	if err != nil {
		return nil
	}
	return caps
}

// Path returns the path to the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// Apply copies the manifest metadata onto p. Fields already set on p
// are kept.
func (m *Manifest) Apply(p Plugin) Plugin {
	if p.Name == "" {
		p.Name = m.Name
	}
	if p.Version == "" {
		p.Version = m.Version
	}
	if !p.Multiple {
		p.Multiple = m.Multiple
	}
	if p.Requires == nil && len(m.Requires) > 0 {
		p.Requires = make(map[string]string, len(m.Requires))
		for k, v := range m.Requires {
			p.Requires[k] = v
		}
	}
	if p.Options == nil && m.Options != nil {
		p.Options = m.Options
	}
	return p
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	if m.Version == "" {
		return m.Name
	}
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
