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
	"time"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
	"trpc.group/trpc-go/trpc-repoqa-go/trainer"
)

var (
	flagTrainScenarios string
	flagTrainConfig    string
	flagSeed           int64
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the rollout training loop over the train split",
		RunE:  runTrain,
	}
	cmd.Flags().StringVar(&flagTrainScenarios, "scenarios", "", "scenario JSONL file (required)")
	cmd.Flags().StringVar(&flagTrainConfig, "config", "", "training YAML config (default: built-in defaults)")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().Int64Var(&flagSeed, "seed", time.Now().UnixNano(), "shuffle seed")
	cmd.MarkFlagRequired("scenarios")
	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := trainer.DefaultConfig()
	if flagTrainConfig != "" {
		var err error
		if cfg, err = trainer.LoadConfig(flagTrainConfig); err != nil {
			return err
		}
	}

	scenarios, err := scenario.LoadFile(flagTrainScenarios,
		scenario.WithSplit(scenario.SplitTrain),
		scenario.WithShuffle(true),
		scenario.WithSeed(flagSeed),
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

	t, err := trainer.New(s, trainer.NopOptimizer{}, cfg)
	if err != nil {
		return err
	}
	return t.Train(cmd.Context(), scenarios)
}
