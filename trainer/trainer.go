//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package trainer drives policy training: it samples scenario batches, runs
// multiple independent rollouts per scenario on a goroutine pool, and hands
// the scored trajectory groups to an external optimizer.
package trainer

import (
	"context"
	"fmt"
	"sync"

	"trpc.group/trpc-go/trpc-repoqa-go/agent"
	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/metrics"
	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
	"trpc.group/trpc-go/trpc-repoqa-go/scorer"
)

// TrajectoryGroup holds the independent rollouts of one scenario within one
// training step.
type TrajectoryGroup struct {
	Scenario     scenario.Scenario
	Trajectories []*agent.Trajectory
}

// AvgReward returns the mean reward across the group's rollouts.
func (g *TrajectoryGroup) AvgReward() float64 {
	if len(g.Trajectories) == 0 {
		return 0
	}
	var sum float64
	for _, t := range g.Trajectories {
		sum += t.Reward
	}
	return sum / float64(len(g.Trajectories))
}

// Optimizer consumes completed trajectory groups and updates policy
// parameters. It is an external collaborator; this package only supplies
// the (conversation, tool vocabulary, reward) tuples.
type Optimizer interface {
	// Step applies one policy update from the given groups.
	Step(ctx context.Context, step int, groups []TrajectoryGroup) error
}

// NopOptimizer logs group statistics and applies no update. It keeps the
// training loop runnable without a training backend attached.
type NopOptimizer struct{}

// Step implements the Optimizer interface.
func (NopOptimizer) Step(_ context.Context, step int, groups []TrajectoryGroup) error {
	var sum float64
	var n int
	for _, g := range groups {
		sum += g.AvgReward() * float64(len(g.Trajectories))
		n += len(g.Trajectories)
	}
	if n > 0 {
		log.Infof("optimizer(nop): step=%d groups=%d avg_reward=%.3f", step, len(groups), sum/float64(n))
	}
	return nil
}

// Trainer runs the training loop.
type Trainer struct {
	scorer    *scorer.Scorer
	optimizer Optimizer
	cfg       Config
}

// New creates a trainer over the given scorer and optimizer.
func New(s *scorer.Scorer, optimizer Optimizer, cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("trainer config: %w", err)
	}
	return &Trainer{scorer: s, optimizer: optimizer, cfg: cfg}, nil
}

// Train iterates the scenarios for the configured number of epochs in
// batches of GroupsPerStep, scoring RolloutsPerGroup independent episodes
// per scenario. Rewards are aggregated only after every rollout in the
// batch has finished; that is the single synchronization point per step.
func (t *Trainer) Train(ctx context.Context, scenarios []scenario.Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("no training scenarios")
	}

	pool, err := createRolloutPool(t.cfg.concurrency())
	if err != nil {
		return err
	}
	defer pool.Release()

	step := 0
	for epoch := 0; epoch < t.cfg.NumEpochs; epoch++ {
		for start := 0; start < len(scenarios); start += t.cfg.GroupsPerStep {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := start + t.cfg.GroupsPerStep
			if end > len(scenarios) {
				end = len(scenarios)
			}

			groups, err := t.runStep(ctx, pool, scenarios[start:end])
			if err != nil {
				return err
			}

			avg := batchAvgReward(groups)
			metrics.StepAvgReward.Set(avg)
			log.Infof("train: epoch=%d step=%d scenarios=%d avg_reward=%.3f", epoch, step, end-start, avg)

			if err := t.optimizer.Step(ctx, step, groups); err != nil {
				return fmt.Errorf("optimizer step %d: %w", step, err)
			}
			step++
		}
	}
	return nil
}

// runStep scores RolloutsPerGroup episodes for every scenario of the batch
// on the shared pool and waits for all of them.
func (t *Trainer) runStep(ctx context.Context, pool poolInvoker, batch []scenario.Scenario) ([]TrajectoryGroup, error) {
	groups := make([]TrajectoryGroup, len(batch))
	var wg sync.WaitGroup
	for i, sc := range batch {
		groups[i] = TrajectoryGroup{
			Scenario:     sc,
			Trajectories: make([]*agent.Trajectory, t.cfg.RolloutsPerGroup),
		}
		for r := 0; r < t.cfg.RolloutsPerGroup; r++ {
			param := rolloutParamPool.Get().(*rolloutParam)
			param.idx = r
			param.ctx = ctx
			param.sc = sc
			param.scorer = t.scorer
			param.results = groups[i].Trajectories
			param.wg = &wg

			wg.Add(1)
			if err := pool.Invoke(param); err != nil {
				wg.Done()
				param.reset()
				rolloutParamPool.Put(param)
				wg.Wait()
				return nil, fmt.Errorf("submit rollout: %w", err)
			}
		}
	}
	wg.Wait()
	return groups, nil
}

// poolInvoker abstracts the ants pool for tests.
type poolInvoker interface {
	Invoke(args any) error
}

func batchAvgReward(groups []TrajectoryGroup) float64 {
	var sum float64
	var n int
	for _, g := range groups {
		for _, traj := range g.Trajectories {
			if traj != nil {
				sum += traj.Reward
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
