// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// The circuits command demonstrates the parallel circuit solver: it builds a
// set of showcase circuits, submits them concurrently, and prints each result
// with its latency. The solver itself has no I/O surface; this binary is the
// embedding program.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var (
	config     Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "circuits",
	Short: "Parallel boolean circuit solver demo",
	Long: `circuits exercises the parallel circuit solver against a suite of
showcase circuits: short-circuiting AND/OR, threshold operators, IF branch
pruning, and solver stop semantics.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
		config = cfg
	}
	rootCmd.AddCommand(solveCmd)
}
