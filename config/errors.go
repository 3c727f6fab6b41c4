// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidAccount indicates a configured account id is malformed.
	ErrInvalidAccount = errors.New("config: invalid account id")

	// ErrInvalidDepositor indicates the depositor policy is not recognized.
	ErrInvalidDepositor = errors.New("config: invalid depositor (must be \"owner\", \"distributor\", or \"either\")")

	// ErrMissingRewarder indicates badge penalty is enabled without a rewarder.
	ErrMissingRewarder = errors.New("config: badge penalty requires a rewarder")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
