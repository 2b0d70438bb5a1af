//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package trainer

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default training batch parameters.
const (
	DefaultRolloutsPerGroup = 4
	DefaultGroupsPerStep    = 12
	DefaultNumEpochs        = 3
)

// Config controls the training loop batching and concurrency.
type Config struct {
	// RolloutsPerGroup is the number of independent episodes sampled per
	// scenario to estimate reward variance.
	RolloutsPerGroup int `yaml:"rollouts_per_group"`
	// GroupsPerStep is the number of scenarios per optimizer step.
	GroupsPerStep int `yaml:"groups_per_step"`
	// NumEpochs is the number of passes over the training scenarios.
	NumEpochs int `yaml:"num_epochs"`
	// Concurrency bounds how many episodes run at once. Defaults to
	// RolloutsPerGroup * GroupsPerStep (one full step in flight).
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		RolloutsPerGroup: DefaultRolloutsPerGroup,
		GroupsPerStep:    DefaultGroupsPerStep,
		NumEpochs:        DefaultNumEpochs,
	}
}

// LoadConfig reads a YAML training configuration, filling omitted fields
// with defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.RolloutsPerGroup <= 0 {
		return errors.New("rollouts_per_group must be positive")
	}
	if c.GroupsPerStep <= 0 {
		return errors.New("groups_per_step must be positive")
	}
	if c.NumEpochs <= 0 {
		return errors.New("num_epochs must be positive")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	return nil
}

func (c *Config) concurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return c.RolloutsPerGroup * c.GroupsPerStep
}
