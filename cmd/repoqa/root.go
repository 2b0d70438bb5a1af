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
	"net/http"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-repoqa-go/index"
	"trpc.group/trpc-go/trpc-repoqa-go/judge"
	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/metrics"
	"trpc.group/trpc-go/trpc-repoqa-go/model/openai"
	"trpc.group/trpc-go/trpc-repoqa-go/scorer"
	"trpc.group/trpc-go/trpc-repoqa-go/tool/codesearch"
)

var (
	flagDB          string
	flagLogLevel    string
	flagModel       string
	flagJudgeModel  string
	flagStructured  bool
	flagMaxResults  int
	flagMetricsAddr string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "repoqa",
		Short: "Question answering agent over an indexed code corpus",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(flagLogLevel)
		},
	}
	root.PersistentFlags().StringVar(&flagDB, "db", "code_index.db", "path to the function index database")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagModel, "model", "gpt-4o-mini", "model used by the agent")
	root.PersistentFlags().StringVar(&flagJudgeModel, "judge-model", "gpt-4o", "model used by the judge")
	root.PersistentFlags().BoolVar(&flagStructured, "structured", false, "use the structured answer shape")
	root.PersistentFlags().IntVar(&flagMaxResults, "max-results", index.DefaultMaxResults, "search results per query")
	root.AddCommand(newIndexCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newTrainCmd())
	return root
}

func surfaceOptions() []codesearch.Option {
	opts := []codesearch.Option{codesearch.WithMaxResults(flagMaxResults)}
	if flagStructured {
		opts = append(opts, codesearch.WithAnswerMode(codesearch.AnswerModeStructured))
	}
	return opts
}

// maybeServeMetrics starts the Prometheus endpoint when --metrics-addr is
// set. The server lives for the remainder of the process.
func maybeServeMetrics() {
	if flagMetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		log.Infof("metrics listening on %s", flagMetricsAddr)
		if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
}

// newScorer wires the agent model, judge model and index client into a
// scorer shared by the bench and train commands.
func newScorer(opts ...scorer.Option) (*scorer.Scorer, *index.Client, error) {
	client, err := index.Open(flagDB)
	if err != nil {
		return nil, nil, err
	}
	agentModel := openai.New(flagModel)
	judgeModel := openai.New(flagJudgeModel)
	opts = append(opts, scorer.WithSurfaceOptions(surfaceOptions()...))
	return scorer.New(agentModel, judge.New(judgeModel), client, opts...), client, nil
}
