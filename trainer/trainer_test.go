//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package trainer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-repoqa-go/agent"
	"trpc.group/trpc-go/trpc-repoqa-go/index"
	"trpc.group/trpc-go/trpc-repoqa-go/judge"
	"trpc.group/trpc-go/trpc-repoqa-go/model"
	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
	"trpc.group/trpc-go/trpc-repoqa-go/scorer"
	"trpc.group/trpc-go/trpc-repoqa-go/tool/codesearch"
)

// answerAllModel ends every episode with a flat answer on the first turn.
// It is stateless and safe for concurrent rollouts.
type answerAllModel struct{}

func (answerAllModel) GenerateContent(_ context.Context, req *model.Request) (*model.Response, error) {
	// Judge requests carry a structured output schema; answer them with a
	// correct verdict. Agent requests get a terminal tool call.
	if req.StructuredOutput != nil {
		return &model.Response{
			Choices: []model.Choice{{
				Message: model.Message{
					Role:    model.RoleAssistant,
					Content: `{"reasoning":"matches","is_correct":true}`,
				},
			}},
		}, nil
	}
	return &model.Response{
		Choices: []model.Choice{{
			Message: model.Message{
				Role: model.RoleAssistant,
				ToolCalls: []model.ToolCall{{
					ID:   "c1",
					Type: "function",
					Function: model.FunctionDefinitionParam{
						Name:      codesearch.ToolAnswer,
						Arguments: []byte(`{"answer":"the reference answer","functions":[]}`),
					},
				}},
			},
		}},
	}, nil
}

func (answerAllModel) Info() model.Info { return model.Info{Name: "answer-all"} }

// recordingOptimizer captures every Step call.
type recordingOptimizer struct {
	mu    sync.Mutex
	steps [][]TrajectoryGroup
	err   error
}

func (o *recordingOptimizer) Step(_ context.Context, _ int, groups []TrajectoryGroup) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, groups)
	return o.err
}

func newTestScorer(t *testing.T) *scorer.Scorer {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := answerAllModel{}
	return scorer.New(m, judge.New(m), index.NewClient(db))
}

func testScenarios(n int) []scenario.Scenario {
	scenarios := make([]scenario.Scenario, n)
	for i := range scenarios {
		scenarios[i] = scenario.Scenario{
			ID:       i,
			Question: fmt.Sprintf("question %d", i),
			Answer:   "the reference answer",
			Repo:     "acme/server",
		}
	}
	return scenarios
}

func TestTrain(t *testing.T) {
	opt := &recordingOptimizer{}
	tr, err := New(newTestScorer(t), opt, Config{
		RolloutsPerGroup: 2,
		GroupsPerStep:    3,
		NumEpochs:        2,
	})
	require.NoError(t, err)

	// 5 scenarios per epoch split into steps of 3 and 2, over 2 epochs.
	require.NoError(t, tr.Train(context.Background(), testScenarios(5)))

	require.Len(t, opt.steps, 4)
	assert.Len(t, opt.steps[0], 3)
	assert.Len(t, opt.steps[1], 2)

	for _, groups := range opt.steps {
		for _, g := range groups {
			require.Len(t, g.Trajectories, 2)
			for _, traj := range g.Trajectories {
				require.NotNil(t, traj)
				assert.Equal(t, agent.StateAnswered, traj.State)
				assert.Equal(t, 1.0, traj.Reward)
			}
			assert.Equal(t, 1.0, g.AvgReward())
		}
	}
}

func TestTrain_NoScenarios(t *testing.T) {
	tr, err := New(newTestScorer(t), NopOptimizer{}, DefaultConfig())
	require.NoError(t, err)
	assert.Error(t, tr.Train(context.Background(), nil))
}

func TestTrain_OptimizerError(t *testing.T) {
	opt := &recordingOptimizer{err: fmt.Errorf("backend unavailable")}
	tr, err := New(newTestScorer(t), opt, Config{
		RolloutsPerGroup: 1,
		GroupsPerStep:    2,
		NumEpochs:        1,
	})
	require.NoError(t, err)

	err = tr.Train(context.Background(), testScenarios(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestTrain_CanceledContext(t *testing.T) {
	tr, err := New(newTestScorer(t), NopOptimizer{}, DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tr.Train(ctx, testScenarios(2)))
}

func TestTrajectoryGroup_AvgReward(t *testing.T) {
	var empty TrajectoryGroup
	assert.Equal(t, 0.0, empty.AvgReward())

	g := TrajectoryGroup{Trajectories: []*agent.Trajectory{
		{Reward: 1.0}, {Reward: 0.0}, {Reward: 1.0}, {Reward: 1.0},
	}}
	assert.Equal(t, 0.75, g.AvgReward())
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultRolloutsPerGroup, cfg.RolloutsPerGroup)
	assert.Equal(t, DefaultGroupsPerStep, cfg.GroupsPerStep)
	assert.Equal(t, DefaultNumEpochs, cfg.NumEpochs)
	assert.Equal(t, DefaultRolloutsPerGroup*DefaultGroupsPerStep, cfg.concurrency())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{name: "zero rollouts", mutate: func(c *Config) { c.RolloutsPerGroup = 0 }, wantErr: true},
		{name: "zero groups", mutate: func(c *Config) { c.GroupsPerStep = 0 }, wantErr: true},
		{name: "zero epochs", mutate: func(c *Config) { c.NumEpochs = 0 }, wantErr: true},
		{name: "negative concurrency", mutate: func(c *Config) { c.Concurrency = -1 }, wantErr: true},
		{name: "explicit concurrency", mutate: func(c *Config) { c.Concurrency = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rollouts_per_group: 2\nconcurrency: 6\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.RolloutsPerGroup)
	// Omitted fields keep their defaults.
	assert.Equal(t, DefaultGroupsPerStep, cfg.GroupsPerStep)
	assert.Equal(t, DefaultNumEpochs, cfg.NumEpochs)
	assert.Equal(t, 6, cfg.concurrency())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
