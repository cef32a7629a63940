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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/circuits/pkg/logging"
	"github.com/AleutianAI/circuits/services/solver/circuit"
	"github.com/AleutianAI/circuits/services/solver/eval"
)

// showcase is one named demo circuit. Delays are deliberately lopsided so
// short-circuiting is visible in the printed latencies.
type showcase struct {
	name    string
	circuit *circuit.Circuit
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run the showcase circuit suite",
	RunE:  runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.New(logging.Config{
		Level:   parseLevel(config.Logging.Level),
		LogDir:  config.Logging.Dir,
		Service: "circuits",
		JSON:    config.Logging.JSON,
	})
	defer logger.Close()

	shutdown, err := initTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err.Error())
		}
	}()

	solver, err := eval.NewSolver(eval.Config{
		MaxConcurrentSolves: config.Solver.MaxConcurrentSolves,
		Logger:              logger.Slog(),
	})
	if err != nil {
		return err
	}
	defer solver.Stop()

	suite := buildShowcase()

	g, ctx := errgroup.WithContext(ctx)
	for _, sc := range suite {
		value := solver.Solve(sc.circuit)
		start := time.Now()
		g.Go(func() error {
			result, err := value.Get(ctx)
			elapsed := time.Since(start).Round(time.Millisecond)
			switch {
			case errors.Is(err, eval.ErrComputationCancelled):
				fmt.Printf("%-28s cancelled      (%s)\n", sc.name, elapsed)
			case err != nil:
				return err
			default:
				fmt.Printf("%-28s %-14t (%s)\n", sc.name, result, elapsed)
			}
			return nil
		})
	}

	return g.Wait()
}

// buildShowcase assembles the demo circuits. Each slow leaf exists to be
// cancelled; none of them should dominate the suite's wall time.
func buildShowcase() []showcase {
	slow := 10 * time.Second

	return []showcase{
		{
			name: "and-all-true",
			circuit: circuit.MustNew(circuit.And(
				circuit.Value(true), circuit.Value(true), circuit.Value(true),
			)),
		},
		{
			name: "and-short-circuit",
			circuit: circuit.MustNew(circuit.And(
				circuit.DelayedValue(time.Second, true),
				circuit.Value(false),
				circuit.DelayedValue(slow, true),
			)),
		},
		{
			name: "if-prunes-else",
			circuit: circuit.MustNew(circuit.If(
				circuit.Value(true),
				circuit.Value(false),
				circuit.DelayedValue(slow, true),
			)),
		},
		{
			name: "if-branches-agree",
			circuit: circuit.MustNew(circuit.If(
				circuit.DelayedValue(slow, false),
				circuit.Value(true),
				circuit.Value(true),
			)),
		},
		{
			name: "gt-threshold-reached",
			circuit: circuit.MustNew(circuit.GT(2,
				circuit.Value(true), circuit.Value(true), circuit.Value(true),
				circuit.DelayedValue(slow, false),
			)),
		},
		{
			name: "nested-or-of-ands",
			circuit: circuit.MustNew(circuit.Or(
				circuit.And(circuit.Value(true), circuit.Not(circuit.Value(true))),
				circuit.LT(2, circuit.Value(false), circuit.Value(true), circuit.Value(false)),
			)),
		},
	}
}

func parseLevel(level string) logging.Level {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
