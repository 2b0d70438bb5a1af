//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	openaiopt "github.com/openai/openai-go/option"
)

// options contains configuration options for the OpenAI model.
type options struct {
	// APIKey is the API key for authentication.
	APIKey string
	// BaseURL is the base URL for the API.
	BaseURL string
	// OpenAIOptions are extra request options passed through to the client.
	OpenAIOptions []openaiopt.RequestOption
}

// Option is a function that configures the OpenAI model.
type Option func(*options)

// WithAPIKey sets the API key. Defaults to the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.APIKey = key
	}
}

// WithBaseURL sets the base URL for OpenAI-compatible endpoints.
// Defaults to the OPENAI_BASE_URL environment variable.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.BaseURL = url
	}
}

// WithOpenAIOptions appends extra request options for the underlying client.
func WithOpenAIOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.OpenAIOptions = append(o.OpenAIOptions, opts...)
	}
}
