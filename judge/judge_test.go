//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-repoqa-go/model"
)

// verdictModel returns one canned response for every call.
type verdictModel struct {
	response *model.Response
	err      error
	requests []*model.Request
}

func (m *verdictModel) GenerateContent(_ context.Context, req *model.Request) (*model.Response, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

func (m *verdictModel) Info() model.Info {
	return model.Info{Name: "verdict-model"}
}

func contentResponse(content string) *model.Response {
	return &model.Response{
		Choices: []model.Choice{{
			Message: model.Message{
				Role:    model.RoleAssistant,
				Content: content,
			},
		}},
	}
}

func TestJudge_Correct(t *testing.T) {
	m := &verdictModel{response: contentResponse(
		`{"reasoning":"All relevant points are covered.","is_correct":true}`)}
	j := New(m)

	verdict := j.Judge(context.Background(), "what does accept_loop do?",
		"It accepts connections.", "The loop accepts incoming connections.")

	assert.True(t, verdict.IsCorrect)
	assert.Equal(t, "All relevant points are covered.", verdict.Reasoning)
}

func TestJudge_Incorrect(t *testing.T) {
	m := &verdictModel{response: contentResponse(
		`{"reasoning":"The candidate contradicts the reference.","is_correct":false}`)}
	j := New(m)

	verdict := j.Judge(context.Background(), "q", "ref", "wrong")

	assert.False(t, verdict.IsCorrect)
	assert.Contains(t, verdict.Reasoning, "contradicts")
}

func TestJudge_RequestShape(t *testing.T) {
	m := &verdictModel{response: contentResponse(`{"reasoning":"ok","is_correct":true}`)}
	j := New(m)

	j.Judge(context.Background(), "the question", "the reference", "the candidate")

	require.Len(t, m.requests, 1)
	req := m.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, model.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, model.RoleUser, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "the question")
	assert.Contains(t, req.Messages[1].Content, "the reference")
	assert.Contains(t, req.Messages[1].Content, "the candidate")

	require.NotNil(t, req.StructuredOutput)
	assert.Equal(t, model.StructuredOutputJSONSchema, req.StructuredOutput.Type)
	require.NotNil(t, req.StructuredOutput.JSONSchema)
	assert.Equal(t, "judge_verdict", req.StructuredOutput.JSONSchema.Name)
	assert.True(t, req.StructuredOutput.JSONSchema.Strict)
}

func TestJudge_InferenceErrorFallsBack(t *testing.T) {
	m := &verdictModel{err: errors.New("connection refused")}
	j := New(m)

	verdict := j.Judge(context.Background(), "q", "ref", "cand")

	assert.False(t, verdict.IsCorrect)
	assert.Contains(t, verdict.Reasoning, "judge inference failed")
	assert.Contains(t, verdict.Reasoning, "connection refused")
}

func TestJudge_ErrorResponseFallsBack(t *testing.T) {
	m := &verdictModel{response: &model.Response{
		Error: &model.ResponseError{
			Message: "rate limited",
			Type:    model.ErrorTypeAPIError,
		},
	}}
	j := New(m)

	verdict := j.Judge(context.Background(), "q", "ref", "cand")

	assert.False(t, verdict.IsCorrect)
	assert.Contains(t, verdict.Reasoning, "rate limited")
}

func TestJudge_EmptyChoicesFallsBack(t *testing.T) {
	m := &verdictModel{response: &model.Response{}}
	j := New(m)

	verdict := j.Judge(context.Background(), "q", "ref", "cand")

	assert.False(t, verdict.IsCorrect)
	assert.Contains(t, verdict.Reasoning, "no choices")
}

func TestJudge_UnparsableVerdictFallsBack(t *testing.T) {
	m := &verdictModel{response: contentResponse("the answer looks right to me")}
	j := New(m)

	verdict := j.Judge(context.Background(), "q", "ref", "cand")

	assert.False(t, verdict.IsCorrect)
	assert.Contains(t, verdict.Reasoning, "parse error")
}

func TestJudge_Idempotent(t *testing.T) {
	m := &verdictModel{response: contentResponse(`{"reasoning":"stable","is_correct":true}`)}
	j := New(m)

	first := j.Judge(context.Background(), "q", "ref", "cand")
	second := j.Judge(context.Background(), "q", "ref", "cand")

	assert.Equal(t, first, second)
}
