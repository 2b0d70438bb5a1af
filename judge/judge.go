//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package judge compares a candidate answer against a reference answer and
// emits a binary correctness verdict.
package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/metrics"
	"trpc.group/trpc-go/trpc-repoqa-go/model"
)

const systemPrompt = "You are a judge that will be given a question, a reference answer, and a model answer. " +
	"Decide whether the model answer contains the relevant information of the reference answer. " +
	"The answer is correct only if no relevant information is missing and nothing contradicts the reference. " +
	"Provide a reasoning for your verdict."

// Verdict is the judge's structured decision. It is immutable once produced.
type Verdict struct {
	// Reasoning explains the verdict.
	Reasoning string `json:"reasoning"`
	// IsCorrect reports whether the candidate answer is correct.
	IsCorrect bool `json:"is_correct"`
}

// verdictSchema constrains the judge response shape.
var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Reasoning why the answer is correct or not",
		},
		"is_correct": map[string]any{
			"type":        "boolean",
			"description": "Whether the answer is correct",
		},
	},
	"required":             []string{"reasoning", "is_correct"},
	"additionalProperties": false,
}

// Judge issues one structured inference call per verdict.
type Judge struct {
	model model.Model
}

// New creates a judge backed by the given model.
func New(m model.Model) *Judge {
	return &Judge{model: m}
}

// Judge compares candidate against reference for the given question.
//
// It never fails: when the inference call errors or its content cannot be
// decoded, the verdict conservatively defaults to incorrect with a
// diagnostic reasoning, biasing the reward signal toward under-crediting.
func (j *Judge) Judge(ctx context.Context, question, reference, candidate string) Verdict {
	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(systemPrompt),
			model.NewUserMessage(fmt.Sprintf(
				"Question: %s \nReference Answer: %s \nAnswer: %s", question, reference, candidate)),
		},
		StructuredOutput: &model.StructuredOutput{
			Type: model.StructuredOutputJSONSchema,
			JSONSchema: &model.JSONSchemaDefinition{
				Name:        "judge_verdict",
				Description: "Binary correctness verdict with reasoning",
				Strict:      true,
				Schema:      verdictSchema,
			},
		},
	}

	rsp, err := j.model.GenerateContent(ctx, req)
	if err != nil {
		return j.inferenceFallback(err.Error())
	}
	if rsp.Error != nil {
		return j.inferenceFallback(fmt.Sprintf("%s: %s", rsp.Error.Type, rsp.Error.Message))
	}
	if len(rsp.Choices) == 0 {
		return j.inferenceFallback("response has no choices")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(rsp.Choices[0].Message.Content), &verdict); err != nil {
		return j.parseFallback(err)
	}
	return verdict
}

// inferenceFallback resolves transport and provider faults to a
// conservative incorrect verdict.
func (j *Judge) inferenceFallback(detail string) Verdict {
	metrics.JudgeFallbacksTotal.WithLabelValues("inference").Inc()
	log.Warnf("judge: inference failed, defaulting to incorrect: %s", detail)
	return Verdict{
		Reasoning: fmt.Sprintf("judge inference failed: %s", detail),
		IsCorrect: false,
	}
}

// parseFallback resolves undecodable judge output to a conservative
// incorrect verdict.
func (j *Judge) parseFallback(err error) Verdict {
	metrics.JudgeFallbacksTotal.WithLabelValues("parse").Inc()
	log.Warnf("judge: could not parse verdict, defaulting to incorrect: %v", err)
	return Verdict{
		Reasoning: fmt.Sprintf("parse error: %v", err),
		IsCorrect: false,
	}
}
