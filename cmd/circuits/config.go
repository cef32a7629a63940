// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/circuits/services/solver/telemetry"
)

// Config is the demo binary's configuration, loaded from config.yaml.
type Config struct {
	Telemetry telemetry.Config `yaml:"telemetry"`
	Solver    SolverConfig     `yaml:"solver"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// SolverConfig configures the circuit solver.
type SolverConfig struct {
	// MaxConcurrentSolves caps concurrently running circuits; 0 = unlimited.
	MaxConcurrentSolves int `yaml:"max_concurrent_solves" validate:"gte=0"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables file logging to the given directory when non-empty.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON format.
	JSON bool `yaml:"json"`
}

// defaultConfig returns the configuration used when no config file exists.
func defaultConfig() Config {
	cfg := Config{
		Logging: LoggingConfig{Level: "info"},
	}
	cfg.Telemetry.ApplyDefaults()
	return cfg
}

// loadConfig reads and validates the configuration file at path.
//
// A missing file is not an error; defaults are returned.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate %s: %w", path, err)
	}

	return cfg, nil
}
