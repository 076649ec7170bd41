// Package config handles persistence for bridgefleetd's daemon configuration:
// the set of bridges it polls, its web/SSH listener settings, and its
// optional MQTT fleet-event publisher.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigListenerID is a unique identifier for a config change listener.
type ConfigListenerID string

// Config holds bridgefleetd's complete daemon configuration.
type Config struct {
	Namespace string        `yaml:"namespace"` // instance namespace; not read by any package (MQTT topics use MQTTConfig.Name)
	Bridges   []BridgeEntry `yaml:"bridges"`
	Web       WebConfig     `yaml:"web"`
	SSH       SSHConfig     `yaml:"ssh,omitempty"`
	MQTT      []MQTTConfig  `yaml:"mqtt,omitempty"`
	PollRate  time.Duration `yaml:"poll_rate"`
	UI        UIConfig      `yaml:"ui,omitempty"`

	dataMu sync.Mutex `yaml:"-"`

	changeListeners map[ConfigListenerID]func() `yaml:"-"`
	listenersMu     sync.RWMutex                `yaml:"-"`
	listenerCounter uint64                      `yaml:"-"`
}

// BridgeEntry is a bridge bridgefleetd polls on a schedule, independent of
// (but usually seeded from) the registry package's bridge_env.ini.
type BridgeEntry struct {
	Name          string `yaml:"name"`
	Address       string `yaml:"address"`
	Enabled       bool   `yaml:"enabled"`
	PollRate      time.Duration `yaml:"poll_rate,omitempty"` // not read: bridgefleetd polls every bridge at the global PollRate
	PublishEvents bool   `yaml:"publish_events,omitempty"`   // forward discovery/param-change events to MQTT
}

// UIConfig stores TUI preferences.
type UIConfig struct {
	Theme     string `yaml:"theme,omitempty"`
	ASCIIMode bool   `yaml:"ascii_mode,omitempty"`
}

// WebConfig holds the bridgefleetd web server's listener and auth settings.
type WebConfig struct {
	Enabled bool         `yaml:"enabled"`
	Host    string       `yaml:"host"`
	Port    int          `yaml:"port"`
	UI      WebUIConfig  `yaml:"ui"`
}

// WebUIConfig holds browser UI settings for the fleet web dashboard.
type WebUIConfig struct {
	Enabled       bool      `yaml:"enabled"`
	SessionSecret string    `yaml:"session_secret,omitempty"`
	Users         []WebUser `yaml:"users,omitempty"`
}

// WebUser represents a web interface user.
type WebUser struct {
	Username           string `yaml:"username"`
	PasswordHash       string `yaml:"password_hash"` // bcrypt
	Role               string `yaml:"role"`          // "admin" or "viewer"
	MustChangePassword bool   `yaml:"must_change_password,omitempty"`
}

// Web user roles.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// SSHConfig holds the remote-TUI SSH server's listener and auth settings.
type SSHConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Port           int    `yaml:"port"`
	Password       string `yaml:"password,omitempty"`
	AuthorizedKeys string `yaml:"authorized_keys,omitempty"`
}

// MQTTConfig holds fleet-event publisher configuration.
type MQTTConfig struct {
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	ClientID string `yaml:"client_id"`
	UseTLS   bool   `yaml:"use_tls,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bridges:  []BridgeEntry{},
		PollRate: 30 * time.Second,
		Web: WebConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			UI: WebUIConfig{
				Enabled: true,
			},
		},
		MQTT: []MQTTConfig{},
	}
}

// FindBridge returns the bridge entry with the given name, or nil.
func (c *Config) FindBridge(name string) *BridgeEntry {
	for i := range c.Bridges {
		if c.Bridges[i].Name == name {
			return &c.Bridges[i]
		}
	}
	return nil
}

// AddBridge adds a new bridge entry.
func (c *Config) AddBridge(b BridgeEntry) {
	c.Bridges = append(c.Bridges, b)
}

// RemoveBridge removes a bridge entry by name.
func (c *Config) RemoveBridge(name string) bool {
	for i, b := range c.Bridges {
		if b.Name == name {
			c.Bridges = append(c.Bridges[:i], c.Bridges[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateBridge replaces an existing bridge entry by name.
func (c *Config) UpdateBridge(name string, updated BridgeEntry) bool {
	for i, b := range c.Bridges {
		if b.Name == name {
			c.Bridges[i] = updated
			return true
		}
	}
	return false
}

// FindMQTT returns the MQTT config with the given name, or nil.
func (c *Config) FindMQTT(name string) *MQTTConfig {
	for i := range c.MQTT {
		if c.MQTT[i].Name == name {
			return &c.MQTT[i]
		}
	}
	return nil
}

// AddMQTT adds a new MQTT publisher configuration.
func (c *Config) AddMQTT(m MQTTConfig) {
	c.MQTT = append(c.MQTT, m)
}

// RemoveMQTT removes an MQTT config by name.
func (c *Config) RemoveMQTT(name string) bool {
	for i, m := range c.MQTT {
		if m.Name == name {
			c.MQTT = append(c.MQTT[:i], c.MQTT[i+1:]...)
			return true
		}
	}
	return false
}

// DefaultPath returns the default configuration file path
// (~/.bridgefleetd/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".bridgefleetd", "config.yaml")
}

// Load reads configuration from a YAML file, creating one with defaults
// (plus a generated web session secret) if it doesn't exist yet.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	dirty := false

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		dirty = true
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Web.UI.SessionSecret == "" {
		secret := make([]byte, 32)
		rand.Read(secret)
		cfg.Web.UI.SessionSecret = base64.StdEncoding.EncodeToString(secret)
		dirty = true
	}

	if dirty {
		cfg.Save(path) // best-effort
	}

	return cfg, nil
}

// AddOnChangeListener registers a callback invoked when the config is saved.
func (c *Config) AddOnChangeListener(cb func()) ConfigListenerID {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	if c.changeListeners == nil {
		c.changeListeners = make(map[ConfigListenerID]func())
	}
	id := ConfigListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&c.listenerCounter, 1)))
	c.changeListeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (c *Config) RemoveOnChangeListener(id ConfigListenerID) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.changeListeners, id)
}

func (c *Config) notifyChangeListeners() {
	c.listenersMu.RLock()
	listeners := make([]func(), 0, len(c.changeListeners))
	for _, cb := range c.changeListeners {
		listeners = append(listeners, cb)
	}
	c.listenersMu.RUnlock()

	for _, cb := range listeners {
		go cb()
	}
}

// Lock acquires the config data mutex for exclusive access.
func (c *Config) Lock() { c.dataMu.Lock() }

// Unlock releases the config data mutex without saving.
func (c *Config) Unlock() { c.dataMu.Unlock() }

// Save acquires the lock, marshals, writes, and notifies.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	return c.saveLocked(path)
}

// UnlockAndSave marshals, releases the lock, writes, and notifies. The
// caller must already hold the lock via Lock().
func (c *Config) UnlockAndSave(path string) error {
	return c.saveLocked(path)
}

func (c *Config) saveLocked(path string) error {
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	c.notifyChangeListeners()
	return nil
}

// FindWebUser returns the web user with the given username, or nil.
func (c *Config) FindWebUser(username string) *WebUser {
	for i := range c.Web.UI.Users {
		if c.Web.UI.Users[i].Username == username {
			return &c.Web.UI.Users[i]
		}
	}
	return nil
}

// AddWebUser adds a new web user.
func (c *Config) AddWebUser(user WebUser) {
	c.Web.UI.Users = append(c.Web.UI.Users, user)
}

// RemoveWebUser removes a web user by username.
func (c *Config) RemoveWebUser(username string) bool {
	for i, u := range c.Web.UI.Users {
		if u.Username == username {
			c.Web.UI.Users = append(c.Web.UI.Users[:i], c.Web.UI.Users[i+1:]...)
			return true
		}
	}
	return false
}
