/*
Package config manages application settings with encrypted-at-rest
secrets.

PURPOSE:
  A JSON file under the data directory holds all settings. Secret values
  (UI password, client secret, tokens) are stored AES-256-GCM encrypted;
  the symmetric key is generated on first use and persisted in a
  separate 0600 file. The Config object is injected into whatever needs
  it - there is no package-level singleton.

USAGE:
  cfg, err := config.Load("./data")
  cfg.SetSecure(config.KeyUIPassword, "hunter2")
  pass := cfg.GetSecure(config.KeyUIPassword)
*/
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Well-known settings keys.
const (
	KeyTenantID          = "tenant_id"
	KeyClientID          = "client_id"
	KeyClientSecret      = "client_secret"
	KeyAccessToken       = "access_token"
	KeyRefreshToken      = "refresh_token"
	KeyUIUsername        = "ui_username"
	KeyUIPassword        = "ui_password"
	KeyAutoUpdateEnabled = "auto_update_enabled"
	KeyUpdateFrequency   = "update_frequency_days"
	KeyCSVPath           = "csv_path"
	KeyLastUpdate        = "last_update"
)

// secureKeys are always stored encrypted.
var secureKeys = map[string]bool{
	KeyClientSecret: true,
	KeyAccessToken:  true,
	KeyRefreshToken: true,
	KeyUIPassword:   true,
}

// Config is a persistent key/value settings store.
type Config struct {
	mu     sync.RWMutex
	path   string
	crypt  *cryptor
	values map[string]string
}

// Load reads (or initializes) the config under dataDir. The directory is
// created if missing.
func Load(dataDir string) (*Config, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}

	crypt, err := newCryptor(filepath.Join(dataDir, ".key"))
	if err != nil {
		return nil, err
	}

	c := &Config{
		path:   filepath.Join(dataDir, "config.json"),
		crypt:  crypt,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(c.path)
	switch {
	case os.IsNotExist(err):
		// first run, empty config
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &c.values); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Config) save() error {
	data, err := json.MarshalIndent(c.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// Get returns a plain value, or def when unset.
func (c *Config) Get(key, def string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Set writes a plain value and persists the file.
func (c *Config) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = value
	return c.save()
}

// GetSecure returns a decrypted secret value, or "" when unset or
// undecryptable.
func (c *Config) GetSecure(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	encrypted, ok := c.values[key]
	if !ok || encrypted == "" {
		return ""
	}
	plain, err := c.crypt.decrypt(encrypted)
	if err != nil {
		return ""
	}
	return plain
}

// SetSecure encrypts and persists a secret value. Setting "" clears it.
func (c *Config) SetSecure(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == "" {
		delete(c.values, key)
		return c.save()
	}
	encrypted, err := c.crypt.encrypt(value)
	if err != nil {
		return err
	}
	c.values[key] = encrypted
	return c.save()
}

// IsSecure reports whether a key is stored encrypted.
func IsSecure(key string) bool {
	return secureKeys[key]
}

// Typed accessors for the settings the rest of the app reads.

// UIUsername defaults to "admin".
func (c *Config) UIUsername() string {
	return c.Get(KeyUIUsername, "admin")
}

// UIPassword is empty when no password is configured, which disables
// authentication entirely.
func (c *Config) UIPassword() string {
	return c.GetSecure(KeyUIPassword)
}

// AutoUpdateEnabled defaults to true.
func (c *Config) AutoUpdateEnabled() bool {
	return c.Get(KeyAutoUpdateEnabled, "true") == "true"
}

// UpdateFrequencyDays defaults to weekly.
func (c *Config) UpdateFrequencyDays() int {
	days, err := strconv.Atoi(c.Get(KeyUpdateFrequency, "7"))
	if err != nil || days < 1 {
		return 7
	}
	return days
}

// CSVPath is the feed file the auto-updater re-imports.
func (c *Config) CSVPath() string {
	return c.Get(KeyCSVPath, "")
}
