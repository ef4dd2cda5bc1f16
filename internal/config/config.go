// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the daemon configuration
type Config struct {
	// Player holds connection settings for the external MPD server
	Player PlayerConfig `json:"player"`

	// StateDir is where the command queue, snapshot, mirror and journal live
	StateDir string `json:"stateDir"`

	// MusicRoot is the directory relative track references resolve against
	MusicRoot string `json:"musicRoot"`

	// ListenAddr is the HTTP facade bind address
	ListenAddr string `json:"listenAddr"`

	// Daemon settings
	Daemon DaemonConfig `json:"daemon"`
}

// PlayerConfig contains MPD connection settings
type PlayerConfig struct {
	// Host of the MPD server; empty enables mDNS discovery
	Host string `json:"host"`

	// Port of the MPD server (default: 6600)
	Port int `json:"port"`

	// Password for MPD, if any
	Password string `json:"password,omitempty"`

	// TimeoutMs is the per-call I/O timeout (default: 10000)
	TimeoutMs int `json:"timeoutMs"`
}

// DaemonConfig contains consumer-loop settings
type DaemonConfig struct {
	// PollIntervalMs between consumer ticks (default: 500)
	PollIntervalMs int `json:"pollIntervalMs"`

	// ReconnectBackoffMs after a failed player connection (default: 2000)
	ReconnectBackoffMs int `json:"reconnectBackoffMs"`

	// JournalMaxLines caps the command execution log (default: 1000)
	JournalMaxLines int `json:"journalMaxLines"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Host:      "127.0.0.1",
			Port:      6600,
			TimeoutMs: 10000,
		},
		StateDir:   "/srv/hubd/state",
		MusicRoot:  "/srv/music",
		ListenAddr: ":8337",
		Daemon: DaemonConfig{
			PollIntervalMs:     500,
			ReconnectBackoffMs: 2000,
			JournalMaxLines:    1000,
		},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, then applies environment overrides
func (m *Manager) Load() error {
	// Ensure config directory exists
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if config file exists
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// Create default config
		m.config = DefaultConfig()
		if err := m.Save(); err != nil {
			return err
		}
		m.applyEnv()
		return nil
	}

	// Read existing config
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Parse JSON
	config := DefaultConfig() // Start with defaults
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.config = config
	m.applyEnv()
	return nil
}

// applyEnv overrides file settings from the environment so deployments can
// keep connection details out of the config file.
func (m *Manager) applyEnv() {
	if v := os.Getenv("MPD_HOST"); v != "" {
		m.config.Player.Host = v
	}
	if v := os.Getenv("MPD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			m.config.Player.Port = port
		}
	}
	if v := os.Getenv("MPD_PASSWORD"); v != "" {
		m.config.Player.Password = v
	}
	if v := os.Getenv("HUBD_STATE_DIR"); v != "" {
		m.config.StateDir = v
	}
	if v := os.Getenv("HUBD_MUSIC_ROOT"); v != "" {
		m.config.MusicRoot = v
	}
	if v := os.Getenv("HUBD_LISTEN"); v != "" {
		m.config.ListenAddr = v
	}
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	// Ensure config directory exists
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update updates the configuration and saves it
func (m *Manager) Update(config *Config) error {
	m.config = config
	return m.Save()
}
