package taskvault

import (
	"fmt"
	"path"
	"time"

	"github.com/viant/taskvault/service/vault"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON or YAML; the zero-value of every nested field
// inherits its package default.
type Config struct {
	Vault   VaultConfig   `json:"vault" yaml:"vault"`
	Watcher WatcherConfig `json:"watcher" yaml:"watcher"`
}

// VaultConfig locates the folder tree backing the task lifecycle.
type VaultConfig struct {
	// URL is the vault root holding the state folders.
	URL string `json:"url" yaml:"url"`

	// Scaffold creates the folder layout and a default policy document on
	// startup instead of failing validation.
	Scaffold bool `json:"scaffold,omitempty" yaml:"scaffold,omitempty"`
}

// WatcherConfig tunes the per-integration polling loops.
type WatcherConfig struct {
	PollingIntervalMs int `json:"pollingIntervalMs" yaml:"pollingIntervalMs"`
}

// PollingInterval returns the poll interval as a duration.
func (c *WatcherConfig) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalMs) * time.Millisecond
}

// DefaultConfig returns a Config populated with package defaults.
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			URL: "/tmp/taskvault/vault",
		},
		Watcher: WatcherConfig{
			PollingIntervalMs: 10000,
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Vault.URL == "" {
		return fmt.Errorf("vault.url must not be empty")
	}
	if c.Watcher.PollingIntervalMs <= 0 {
		return fmt.Errorf("watcher.pollingIntervalMs must be > 0")
	}
	return nil
}

// PolicyURL returns the location of the approval policy document.
func (c *Config) PolicyURL() string {
	return path.Join(c.Vault.URL, vault.PolicyDocument)
}

// QueuesURL returns the folder holding per-integration operation queues.
func (c *Config) QueuesURL() string {
	return path.Join(c.Vault.URL, "Queues")
}

// LogsURL returns the folder holding audit trail files.
func (c *Config) LogsURL() string {
	return path.Join(c.Vault.URL, "Logs")
}
