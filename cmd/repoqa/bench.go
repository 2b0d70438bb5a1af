//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-repoqa-go/benchmark"
	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
)

var (
	flagScenarios   string
	flagSplit       string
	flagLimit       int
	flagConcurrency int
	flagRealism     float64
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the agent over a scenario file",
		RunE:  runBench,
	}
	cmd.Flags().StringVar(&flagScenarios, "scenarios", "", "scenario JSONL file (required)")
	cmd.Flags().StringVar(&flagSplit, "split", string(scenario.SplitTest), "dataset split to evaluate")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "cap the number of scenarios (0 = all)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", benchmark.DefaultConcurrency, "concurrent episodes")
	cmd.Flags().Float64Var(&flagRealism, "realism-threshold", scenario.DefaultRealismThreshold, "minimum how_realistic score")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.MarkFlagRequired("scenarios")
	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	scenarios, err := scenario.LoadFile(flagScenarios,
		scenario.WithSplit(scenario.Split(flagSplit)),
		scenario.WithLimit(flagLimit),
		scenario.WithRealismThreshold(flagRealism),
	)
	if err != nil {
		return err
	}

	s, client, err := newScorer()
	if err != nil {
		return err
	}
	defer client.Close()

	maybeServeMetrics()

	runner := benchmark.New(s, benchmark.WithConcurrency(flagConcurrency))
	report, err := runner.Run(cmd.Context(), scenarios)
	if err != nil {
		return err
	}

	for _, res := range report.Results {
		mark := "✗"
		if res.Correct() {
			mark = "✓"
		}
		fmt.Printf("%s scenario=%d repo=%s state=%s\n", mark, res.Scenario.ID, res.Scenario.Repo, res.Trajectory.State)
	}
	fmt.Printf("\n%d/%d correct (accuracy %.1f%%), %d answered\n",
		report.CorrectCount(), len(report.Results), report.Accuracy()*100, report.Answered())
	return nil
}
