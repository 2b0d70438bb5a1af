//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package benchmark evaluates the agent over a scenario set and reports
// aggregate accuracy.
package benchmark

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"trpc.group/trpc-go/trpc-repoqa-go/agent"
	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
	"trpc.group/trpc-go/trpc-repoqa-go/scorer"
)

// DefaultConcurrency bounds how many episodes run at once.
const DefaultConcurrency = 4

// Result pairs one scenario with its scored trajectory.
type Result struct {
	Scenario   scenario.Scenario
	Trajectory *agent.Trajectory
}

// Correct reports whether the episode earned the full reward.
func (r *Result) Correct() bool {
	return r.Trajectory != nil && r.Trajectory.Reward == 1.0
}

// Report aggregates benchmark results.
type Report struct {
	Results []Result
}

// Answered counts episodes that produced a final answer.
func (r *Report) Answered() int {
	var n int
	for _, res := range r.Results {
		if res.Trajectory.FinalAnswer != nil {
			n++
		}
	}
	return n
}

// CorrectCount counts episodes judged correct.
func (r *Report) CorrectCount() int {
	var n int
	for _, res := range r.Results {
		if res.Correct() {
			n++
		}
	}
	return n
}

// Accuracy is the fraction of scenarios judged correct.
func (r *Report) Accuracy() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.CorrectCount()) / float64(len(r.Results))
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds concurrent episodes.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// Runner evaluates scenarios with a scorer.
type Runner struct {
	scorer      *scorer.Scorer
	concurrency int
}

// New creates a benchmark runner.
func New(s *scorer.Scorer, opts ...Option) *Runner {
	r := &Runner{
		scorer:      s,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scores every scenario, up to the configured concurrency at a time,
// and returns the aggregate report. Individual episodes never fail the run;
// an unanswered or incorrect episode simply scores 0.
func (r *Runner) Run(ctx context.Context, scenarios []scenario.Scenario) (*Report, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios to benchmark")
	}

	results := make([]Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			traj := r.scorer.Score(gctx, sc)
			results[i] = Result{Scenario: sc, Trajectory: traj}
			log.Infof("bench: scenario=%d repo=%s state=%s reward=%v", sc.ID, sc.Repo, traj.State, traj.Reward)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results}
	log.Infof("bench: %d scenarios, %d answered, %d correct, accuracy=%.3f",
		len(results), report.Answered(), report.CorrectCount(), report.Accuracy())
	return report, nil
}
