// Package registry implements the host registry: a small on-disk INI file,
// the `[HOST_BRIDGES]` section of bridge_env.ini, mapping bridge names to
// IPv4 addresses and designating one of them as the default.
package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

const (
	sectionName     = "HOST_BRIDGES"
	namePrefix      = "BRIDGE_NAME_"
	defaultNameKey  = "BRIDGE_DEFAULT_NAME"
	envPathOverride = "BRIDGECTL_BRIDGE_ENV_PATH"
)

// Registry is the in-memory form of the bridge_env.ini file: bridge name to
// IP (IP may be empty/unparseable, exposed as "" rather than failing to
// load), plus an optional default bridge name.
type Registry struct {
	mu      sync.Mutex
	bridges map[string]string // name -> dotted IPv4, "" if absent/unparseable
	def     string            // bridge name designated default, "" if none

	listeners map[string]func()
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{bridges: make(map[string]string)}
}

// DefaultPath returns the OS-dependent registry path, honoring
// BRIDGECTL_BRIDGE_ENV_PATH if set.
func DefaultPath() (string, error) {
	if p := os.Getenv(envPathOverride); p != "" {
		return p, nil
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("registry: APPDATA not set")
		}
		return filepath.Join(appData, "bridge_env.ini"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("registry: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "bridge_env.ini"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "bridge_env.ini"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("registry: %w", err)
		}
		return filepath.Join(home, ".config", "bridge_env.ini"), nil
	}
}

// Load reads path into a new Registry. A missing file is treated as an
// empty registry, not an error.
func Load(path string) (*Registry, error) {
	r := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}

	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}

	sec, err := f.GetSection(sectionName)
	if err != nil {
		// No [HOST_BRIDGES] section is a valid, empty registry.
		return r, nil
	}

	var defKey string
	for _, key := range sec.Keys() {
		name := key.Name()
		switch {
		case name == defaultNameKey:
			defKey = key.Value()
		case strings.HasPrefix(name, namePrefix):
			bridgeName := strings.TrimPrefix(name, namePrefix)
			r.bridges[bridgeName] = key.Value()
		}
	}

	if defKey != "" {
		r.def = strings.TrimPrefix(defKey, namePrefix)
	}

	return r, nil
}

// validateName enforces the registry's name constraint: ASCII, 1..=255 bytes.
func validateName(name string) error {
	if len(name) < 1 || len(name) > 255 {
		return fmt.Errorf("registry: bridge name must be 1..255 bytes, got %d", len(name))
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7f {
			return fmt.Errorf("registry: bridge name must be ASCII")
		}
	}
	return nil
}

// SetBridge records ip (may be empty) for name, creating the entry if
// absent.
func (r *Registry) SetBridge(name, ip string) error {
	if err := validateName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridges[name] = ip
	return nil
}

// RemoveBridge deletes name from the registry. If name was the default, the
// default is cleared too.
func (r *Registry) RemoveBridge(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bridges, name)
	if r.def == name {
		r.def = ""
	}
}

// Bridge returns the IP recorded for name (possibly "") and whether name is
// present at all.
func (r *Registry) Bridge(name string) (ip string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ip, ok = r.bridges[name]
	return ip, ok
}

// Names returns every registered bridge name, unordered.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.bridges))
	for name := range r.bridges {
		out = append(out, name)
	}
	return out
}

// SetDefault designates name as the default bridge. Rejected if name is not
// already registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bridges[name]; !ok {
		return fmt.Errorf("registry: cannot set default to unregistered bridge %q", name)
	}
	r.def = name
	return nil
}

// RemoveDefault clears the default pointer, whether or not the bridge it
// names is still registered; that bridge itself stays registered.
func (r *Registry) RemoveDefault() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def = ""
}

// Default returns the default bridge's name and IP, and whether a default
// is set at all. If the default name points at a bridge that is not
// registered (possible only when a loaded file's BRIDGE_DEFAULT_NAME names
// a missing entry; RemoveBridge clears the default), ok is true but ip is
// "".
func (r *Registry) Default() (name, ip string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.def == "" {
		return "", "", false
	}
	return r.def, r.bridges[r.def], true
}

// Save writes the registry to path, creating parent directories as needed,
// with forced CRLF line endings regardless of host OS. The section is
// rebuilt from scratch in a fresh ini.File on every save rather than
// mutating a file loaded from disk, so a stale key removed from the
// in-memory registry never survives a round trip.
func (r *Registry) Save(path string) error {
	r.mu.Lock()
	f := ini.Empty()
	sec, err := f.NewSection(sectionName)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: build section: %w", err)
	}
	if r.def != "" {
		if _, err := sec.NewKey(defaultNameKey, namePrefix+r.def); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("registry: build default key: %w", err)
		}
	}
	for name, ip := range r.bridges {
		if _, err := sec.NewKey(namePrefix+name, ip); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("registry: build key for %q: %w", name, err)
		}
	}
	listeners := make([]func(), 0, len(r.listeners))
	for _, cb := range r.listeners {
		listeners = append(listeners, cb)
	}
	r.mu.Unlock()

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("registry: mkdir %s: %w", dir, err)
		}
	}

	var buf bytes.Buffer
	ini.LineBreak = "\r\n"
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("registry: render %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("registry: write %s: %w", path, err)
	}

	for _, cb := range listeners {
		go cb()
	}
	return nil
}

// OnChange registers a callback invoked (in its own goroutine) after every
// successful Save, mirroring config.Config's change-listener mechanism.
func (r *Registry) OnChange(id string, cb func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[string]func())
	}
	r.listeners[id] = cb
}
