//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package model provides interfaces and types for working with LLMs.
package model

import "context"

// Model is the interface for all language models.
//
// GenerateContent is a blocking, network-bound call: it is awaited to
// completion before the caller advances. Retrying failed calls, if any,
// is the implementation's concern.
type Model interface {
	GenerateContent(ctx context.Context, request *Request) (*Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info contains basic information about a model.
type Info struct {
	// Name is the model identifier, e.g. "gpt-4o-mini".
	Name string `json:"name"`
}
