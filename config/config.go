// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config reads and writes the sharepool configuration file, a
// plain list of "key = value" lines.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/types"
)

// Config holds the settings of a sharepool deployment.
type Config struct {
	DataDir    string
	ListenAddr string
	LogLevel   string
	LogFile    string

	ContractID   string
	Owner        string
	Distributor  string
	Rewarder     string
	ScoreToken   string
	Whitelist    []string
	Depositor    string
	BadgePenalty bool
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:     DefaultDataDir(),
		ListenAddr:  ":8080",
		LogLevel:    "info",
		ContractID:  "sharepool.near",
		Owner:       "owner.near",
		Distributor: "owner.near",
		Depositor:   "owner",
	}
}

// DefaultDataDir returns ~/.sharepool, or .sharepool in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sharepool"
	}
	return filepath.Join(home, ".sharepool")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LoadConfig reads the configuration file at path. Keys not present keep
// their default values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "listen":
		c.ListenAddr = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "contract":
		c.ContractID = value
	case "owner":
		c.Owner = value
	case "distributor":
		c.Distributor = value
	case "rewarder":
		c.Rewarder = value
	case "scoretoken":
		c.ScoreToken = value
	case "whitelist":
		c.Whitelist = SplitList(value)
	case "depositor":
		c.Depositor = value
	case "badgepenalty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("badgepenalty: %w", err)
		}
		c.BadgePenalty = b
	}
	return nil
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Sharepool Configuration\n\n")
	for _, kv := range [][2]string{
		{"datadir", cfg.DataDir},
		{"listen", cfg.ListenAddr},
		{"loglevel", cfg.LogLevel},
		{"logfile", cfg.LogFile},
		{"contract", cfg.ContractID},
		{"owner", cfg.Owner},
		{"distributor", cfg.Distributor},
		{"rewarder", cfg.Rewarder},
		{"scoretoken", cfg.ScoreToken},
		{"whitelist", strings.Join(cfg.Whitelist, ",")},
		{"depositor", cfg.Depositor},
		{"badgepenalty", strconv.FormatBool(cfg.BadgePenalty)},
	} {
		fmt.Fprintf(&b, "%s = %s\n", kv[0], kv[1])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Ledger converts cfg into a ledger configuration. cfg should have passed
// ValidateConfig.
func (c Config) Ledger() (ledger.Config, error) {
	depositor, err := ledger.ParseAuthority(c.Depositor)
	if err != nil {
		return ledger.Config{}, fmt.Errorf("%w: %w", ErrInvalidDepositor, err)
	}
	policy := ledger.DefaultPolicy()
	policy.Depositor = depositor
	policy.BadgePenalty = c.BadgePenalty

	whitelist := make([]types.AccountID, len(c.Whitelist))
	for i, tok := range c.Whitelist {
		whitelist[i] = types.AccountID(tok)
	}
	return ledger.Config{
		ContractID:  types.AccountID(c.ContractID),
		Owner:       types.AccountID(c.Owner),
		Distributor: types.AccountID(c.Distributor),
		Rewarder:    types.AccountID(c.Rewarder),
		ScoreToken:  types.AccountID(c.ScoreToken),
		Whitelist:   whitelist,
		Policy:      policy,
	}, nil
}
