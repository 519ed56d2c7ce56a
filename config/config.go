// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the YAML configuration for the sss command: split
// defaults and the guardians shares can be sealed to.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-khushal/sss/guardian"
	"github.com/a-khushal/sss/shares"
	"github.com/a-khushal/sss/sharing/secrets"
	glog "github.com/golang/glog"
	"github.com/google/uuid"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultFileName is the name of the configuration file under the user
	// config directory.
	DefaultFileName = "sss.yaml"

	appDir = "sss"
)

// Shares holds the split defaults.
type Shares struct {
	Total            int `json:"total"`
	Threshold        int `json:"threshold"`
	MinPayloadLength int `json:"minPayloadLength"`
}

// Guardian is a custodian that shares can be sealed to.
type Guardian struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	PublicKey string    `json:"publicKey"`
}

// Config is the contents of sss.yaml.
type Config struct {
	Shares    Shares     `json:"shares"`
	Guardians []Guardian `json:"guardians,omitempty"`
}

// DefaultPath returns $XDG_CONFIG_HOME/sss/sss.yaml, or the platform
// equivalent.
func DefaultPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory location: %v", err)
	}
	return filepath.Join(cfgDir, appDir, DefaultFileName), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Shares: Shares{
			Total:            7,
			Threshold:        5,
			MinPayloadLength: shares.DefaultMinPayloadLen,
		},
	}
}

// Load reads and validates the configuration at path. Fields missing from
// the file keep their defaults, and a missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	yamlBytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		glog.V(1).Infof("No config file at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(yamlBytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	glog.V(1).Infof("Loaded config from %s: %v split, %d guardians", path, cfg.SplitConfig(), len(cfg.Guardians))
	return cfg, nil
}

// Save validates the configuration and writes it to path, creating the
// directory if needed. The file is private to the user.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	yamlBytes, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}
	if err := os.WriteFile(path, yamlBytes, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SplitConfig returns the split defaults as a secrets.Config.
func (c *Config) SplitConfig() secrets.Config {
	return secrets.Config{TotalShares: c.Shares.Total, Threshold: c.Shares.Threshold}
}

// Validate checks the split defaults and every guardian entry.
func (c *Config) Validate() error {
	if err := c.SplitConfig().Validate(); err != nil {
		return err
	}
	if c.Shares.MinPayloadLength < 1 {
		return &secrets.ConfigError{Field: "minPayloadLength", Reason: fmt.Sprintf("must be positive, got %d", c.Shares.MinPayloadLength)}
	}

	ids := make(map[uuid.UUID]bool, len(c.Guardians))
	names := make(map[string]bool, len(c.Guardians))
	for i, g := range c.Guardians {
		if g.ID == uuid.Nil {
			return &secrets.ConfigError{Field: "guardians", Reason: fmt.Sprintf("entry %d has no id", i+1)}
		}
		if strings.TrimSpace(g.Name) == "" {
			return &secrets.ConfigError{Field: "guardians", Reason: fmt.Sprintf("entry %d has no name", i+1)}
		}
		if ids[g.ID] {
			return &secrets.ConfigError{Field: "guardians", Reason: fmt.Sprintf("id %s is listed twice", g.ID)}
		}
		if names[g.Name] {
			return &secrets.ConfigError{Field: "guardians", Reason: fmt.Sprintf("name %q is listed twice", g.Name)}
		}
		if _, err := g.Key(); err != nil {
			return &secrets.ConfigError{Field: "guardians", Reason: err.Error()}
		}
		ids[g.ID] = true
		names[g.Name] = true
	}
	return nil
}

// Guardian finds a guardian by id or, failing that, by name.
func (c *Config) Guardian(idOrName string) (*Guardian, error) {
	if id, err := uuid.Parse(idOrName); err == nil {
		for i := range c.Guardians {
			if c.Guardians[i].ID == id {
				return &c.Guardians[i], nil
			}
		}
	}
	for i := range c.Guardians {
		if c.Guardians[i].Name == idOrName {
			return &c.Guardians[i], nil
		}
	}
	return nil, fmt.Errorf("no guardian with id or name %q", idOrName)
}

// AddGuardian registers a guardian under a fresh id.
func (c *Config) AddGuardian(name, publicKey string) (*Guardian, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &secrets.ConfigError{Field: "guardians", Reason: "name must not be empty"}
	}
	if _, err := c.Guardian(name); err == nil {
		return nil, &secrets.ConfigError{Field: "guardians", Reason: fmt.Sprintf("name %q is already taken", name)}
	}
	if _, err := guardian.ParseKey(publicKey, "public key"); err != nil {
		return nil, err
	}
	c.Guardians = append(c.Guardians, Guardian{ID: uuid.New(), Name: name, PublicKey: publicKey})
	return &c.Guardians[len(c.Guardians)-1], nil
}

// Key decodes the guardian's public key.
func (g *Guardian) Key() (*[guardian.KeySize]byte, error) {
	return guardian.ParseKey(g.PublicKey, "public key of guardian "+g.Name)
}
