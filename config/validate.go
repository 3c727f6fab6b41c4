// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/types"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	for _, a := range []struct{ key, id string }{
		{"contract", cfg.ContractID},
		{"owner", cfg.Owner},
		{"distributor", cfg.Distributor},
	} {
		if err := types.AccountID(a.id).Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAccount, a.key, err)
		}
	}
	for _, a := range []struct{ key, id string }{
		{"rewarder", cfg.Rewarder},
		{"scoretoken", cfg.ScoreToken},
	} {
		if a.id == "" {
			continue
		}
		if err := types.AccountID(a.id).Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAccount, a.key, err)
		}
	}
	for _, tok := range cfg.Whitelist {
		if err := types.AccountID(tok).Validate(); err != nil {
			return fmt.Errorf("%w: whitelist: %w", ErrInvalidAccount, err)
		}
	}

	if _, err := ledger.ParseAuthority(cfg.Depositor); err != nil {
		return ErrInvalidDepositor
	}
	if cfg.BadgePenalty && cfg.Rewarder == "" {
		return ErrMissingRewarder
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
