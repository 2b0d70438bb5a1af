//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package metrics exposes Prometheus instrumentation for episodes,
// tool usage and rewards.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EpisodesTotal counts finished episodes by terminal state.
	EpisodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoqa_episodes_total",
			Help: "Total number of finished agent episodes by terminal state",
		},
		[]string{"state"},
	)

	// EpisodeTurns observes how many turns an episode used.
	EpisodeTurns = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repoqa_episode_turns",
			Help:    "Number of model turns per episode",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
		},
	)

	// EpisodeDuration observes wall-clock episode duration.
	EpisodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repoqa_episode_duration_seconds",
			Help:    "Wall-clock duration of agent episodes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// ToolCallsTotal counts dispatched tool calls by tool name.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoqa_tool_calls_total",
			Help: "Total number of dispatched tool calls by tool name",
		},
		[]string{"tool"},
	)

	// UnknownToolCallsTotal counts tool-call requests whose name could not
	// be resolved and were skipped.
	UnknownToolCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repoqa_unknown_tool_calls_total",
			Help: "Total number of skipped tool calls with unresolved names",
		},
	)

	// JudgeFallbacksTotal counts judge calls that resolved to the
	// conservative false verdict, by failure class.
	JudgeFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoqa_judge_fallbacks_total",
			Help: "Total number of judge calls resolved by a conservative fallback",
		},
		[]string{"reason"},
	)

	// Rewards observes per-trajectory rewards (binary by construction).
	Rewards = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repoqa_trajectory_reward",
			Help:    "Reward assigned to scored trajectories",
			Buckets: []float64{0, 1},
		},
	)

	// StepAvgReward tracks the average reward of the latest training step.
	StepAvgReward = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repoqa_train_step_avg_reward",
			Help: "Average reward across all trajectories of the latest training step",
		},
	)
)

// Handler returns an HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
