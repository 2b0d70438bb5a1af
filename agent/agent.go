//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package agent implements the turn-bounded question-answering loop over a
// code-search tool surface.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/metrics"
	"trpc.group/trpc-go/trpc-repoqa-go/model"
	"trpc.group/trpc-go/trpc-repoqa-go/tool"
	"trpc.group/trpc-go/trpc-repoqa-go/tool/codesearch"
)

// DefaultMaxTurns bounds the number of model turns per episode.
const DefaultMaxTurns = 10

// defaultSystemPrompt instructs the model to act exclusively through tools.
const defaultSystemPrompt = "Use the tools provided to answer the user's question about the %s repository. " +
	"Search for candidate functions, read the ones that look relevant, and finish by calling " +
	codesearch.ToolAnswer + " with your answer and the functions it cites. " +
	"Always respond with a tool call; never answer in plain text."

// State is the terminal (or running) state of an episode.
type State string

// Episode states.
const (
	// StateRunning is the non-terminal in-progress state.
	StateRunning State = "running"
	// StateAnswered means the agent invoked the terminal answer action.
	StateAnswered State = "answered"
	// StateNoToolCall means the assistant responded without any tool call.
	// This is a protocol violation, not a valid answer.
	StateNoToolCall State = "no_tool_call"
	// StateBudgetExhausted means the turn budget ran out while still running.
	StateBudgetExhausted State = "budget_exhausted"
	// StateError means an inference or tool dispatch fault aborted the episode.
	StateError State = "error"
)

// Trajectory records one episode: the conversation, the tool vocabulary it
// was offered, the final answer if one was produced, and the reward set
// once after judging.
type Trajectory struct {
	// ID identifies the episode.
	ID string
	// Messages is the conversation, append-only during the episode.
	Messages []model.Message
	// Tools is the tool vocabulary advertised to the model.
	Tools map[string]tool.Tool
	// FinalAnswer is set only when State is StateAnswered.
	FinalAnswer *codesearch.FinalAnswer
	// Reward is set once, after judging, and never mutated again.
	Reward float64
	// State is the episode state.
	State State
	// Turns is the number of model turns consumed.
	Turns int
	// FailureDetail carries diagnostics for StateError episodes.
	FailureDetail string
}

// Conversation returns a snapshot of the messages so far. The trajectory's
// own slice stays exclusively owned by the loop.
func (t *Trajectory) Conversation() []model.Message {
	snapshot := make([]model.Message, len(t.Messages))
	copy(snapshot, t.Messages)
	return snapshot
}

// Surface is the tool surface the loop dispatches against.
// *codesearch.Surface implements it.
type Surface interface {
	// Repo returns the fixed target repository.
	Repo() string
	// Tools returns the advertised tool vocabulary keyed by name.
	Tools() map[string]tool.Tool
	// Dispatch invokes the named tool. It returns codesearch.ErrUnknownTool
	// for names outside the vocabulary and the captured FinalAnswer when the
	// terminal action was invoked.
	Dispatch(ctx context.Context, name string, jsonArgs []byte) (any, *codesearch.FinalAnswer, error)
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxTurns sets the turn budget.
func WithMaxTurns(n int) Option {
	return func(l *Loop) {
		l.maxTurns = n
	}
}

// WithSystemPrompt overrides the seeded system instructions.
func WithSystemPrompt(prompt string) Option {
	return func(l *Loop) {
		l.systemPrompt = prompt
	}
}

// WithGenerationConfig sets sampling parameters for every turn.
func WithGenerationConfig(cfg model.GenerationConfig) Option {
	return func(l *Loop) {
		l.genConfig = cfg
	}
}

// Loop drives bounded multi-turn conversations between a model and a tool
// surface. One Loop may run many episodes; each episode owns its Trajectory
// and shares no mutable state with other episodes.
type Loop struct {
	model        model.Model
	surface      Surface
	maxTurns     int
	systemPrompt string
	genConfig    model.GenerationConfig
}

// New creates an agent loop over the given model and tool surface.
func New(m model.Model, surface Surface, opts ...Option) *Loop {
	l := &Loop{
		model:        m,
		surface:      surface,
		maxTurns:     DefaultMaxTurns,
		systemPrompt: fmt.Sprintf(defaultSystemPrompt, surface.Repo()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes one episode for the given question and returns its
// Trajectory. Run never returns an error: faults terminate the episode and
// are reported through the trajectory state.
func (l *Loop) Run(ctx context.Context, question string) *Trajectory {
	start := time.Now()
	traj := &Trajectory{
		ID:    uuid.NewString(),
		State: StateRunning,
		Tools: l.surface.Tools(),
		Messages: []model.Message{
			model.NewSystemMessage(l.systemPrompt),
			model.NewUserMessage(question),
		},
	}

	for traj.State == StateRunning && traj.Turns < l.maxTurns {
		l.runTurn(ctx, traj)
	}
	if traj.State == StateRunning {
		// Common for hard questions; not an error condition.
		traj.State = StateBudgetExhausted
		log.Debugf("episode %s: turn budget of %d exhausted", traj.ID, l.maxTurns)
	}

	metrics.EpisodesTotal.WithLabelValues(string(traj.State)).Inc()
	metrics.EpisodeTurns.Observe(float64(traj.Turns))
	metrics.EpisodeDuration.Observe(time.Since(start).Seconds())
	return traj
}

func (l *Loop) runTurn(ctx context.Context, traj *Trajectory) {
	traj.Turns++

	rsp, err := l.model.GenerateContent(ctx, &model.Request{
		Messages:         traj.Conversation(),
		GenerationConfig: l.genConfig,
		Tools:            traj.Tools,
	})
	if err != nil {
		l.fail(traj, fmt.Errorf("inference: %w", err))
		return
	}
	if rsp.Error != nil {
		l.fail(traj, fmt.Errorf("inference: %s: %s", rsp.Error.Type, rsp.Error.Message))
		return
	}
	if len(rsp.Choices) == 0 {
		l.fail(traj, errors.New("inference: response has no choices"))
		return
	}

	assistant := rsp.Choices[0].Message
	assistant.Role = model.RoleAssistant
	traj.Messages = append(traj.Messages, assistant)

	// A tool-call-free response is a protocol violation: the agent must act
	// through tools, including to answer.
	if len(assistant.ToolCalls) == 0 {
		traj.State = StateNoToolCall
		log.Debugf("episode %s: assistant answered without a tool call", traj.ID)
		return
	}

	for _, call := range assistant.ToolCalls {
		result, answer, err := l.surface.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
		if errors.Is(err, codesearch.ErrUnknownTool) {
			// Tolerated protocol laxity: an unresolved name is dropped
			// without a synthetic result.
			metrics.UnknownToolCallsTotal.Inc()
			log.Warnf("episode %s: skipping unknown tool %q", traj.ID, call.Function.Name)
			continue
		}
		if err != nil {
			l.fail(traj, fmt.Errorf("dispatch %s: %w", call.Function.Name, err))
			return
		}
		metrics.ToolCallsTotal.WithLabelValues(call.Function.Name).Inc()

		content, err := stringifyResult(result)
		if err != nil {
			l.fail(traj, fmt.Errorf("encode %s result: %w", call.Function.Name, err))
			return
		}
		traj.Messages = append(traj.Messages, model.NewToolMessage(call.ID, call.Function.Name, content))

		if answer != nil {
			// First terminal invocation ends the episode; remaining calls in
			// this turn are ignored.
			traj.FinalAnswer = answer
			traj.State = StateAnswered
			return
		}
	}
}

// fail aborts the episode with no answer. Faults are not retried within an
// episode.
func (l *Loop) fail(traj *Trajectory, err error) {
	traj.State = StateError
	traj.FailureDetail = err.Error()
	log.Errorf("episode %s: %v", traj.ID, err)
}

func stringifyResult(result any) (string, error) {
	if result == nil {
		return "", nil
	}
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
