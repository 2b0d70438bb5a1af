//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package scorer runs one agent episode per scenario and converts the judge
// verdict into a binary reward.
package scorer

import (
	"context"

	"trpc.group/trpc-go/trpc-repoqa-go/agent"
	"trpc.group/trpc-go/trpc-repoqa-go/index"
	"trpc.group/trpc-go/trpc-repoqa-go/judge"
	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/metrics"
	"trpc.group/trpc-go/trpc-repoqa-go/model"
	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
	"trpc.group/trpc-go/trpc-repoqa-go/tool/codesearch"
)

// Option configures a Scorer.
type Option func(*Scorer)

// WithAgentOptions passes options through to each episode's agent loop.
func WithAgentOptions(opts ...agent.Option) Option {
	return func(s *Scorer) {
		s.agentOpts = opts
	}
}

// WithSurfaceOptions passes options through to each episode's tool surface.
func WithSurfaceOptions(opts ...codesearch.Option) Option {
	return func(s *Scorer) {
		s.surfaceOpts = opts
	}
}

// Scorer scores scenarios. It is safe for concurrent use: each Score call
// builds an independent episode sharing only the read-only index client.
type Scorer struct {
	agentModel  model.Model
	judge       *judge.Judge
	client      *index.Client
	agentOpts   []agent.Option
	surfaceOpts []codesearch.Option
}

// New creates a scorer running episodes with agentModel and verdicts with j.
func New(agentModel model.Model, j *judge.Judge, client *index.Client, opts ...Option) *Scorer {
	s := &Scorer{
		agentModel: agentModel,
		judge:      j,
		client:     client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs one episode for the scenario and sets the trajectory reward.
// Unanswered episodes are scored 0 by construction, without a judge call.
// Answered episodes earn 1.0 iff the judge deems them correct, else 0.0;
// the reinforcement signal is pass/fail, not graded.
//
// Score always returns a complete trajectory, never an error.
func (s *Scorer) Score(ctx context.Context, sc scenario.Scenario) *agent.Trajectory {
	surface := codesearch.New(s.client, sc.Repo, s.surfaceOpts...)
	loop := agent.New(s.agentModel, surface, s.agentOpts...)

	traj := loop.Run(ctx, sc.Question)
	if traj.FinalAnswer == nil {
		traj.Reward = 0
		metrics.Rewards.Observe(traj.Reward)
		return traj
	}

	verdict := s.judge.Judge(ctx, sc.Question, sc.Answer, traj.FinalAnswer.Candidate())
	if verdict.IsCorrect {
		traj.Reward = 1.0
	} else {
		traj.Reward = 0.0
	}
	log.Debugf("scored scenario %d (%s): reward=%v reasoning=%s", sc.ID, sc.Repo, traj.Reward, verdict.Reasoning)
	metrics.Rewards.Observe(traj.Reward)
	return traj
}
