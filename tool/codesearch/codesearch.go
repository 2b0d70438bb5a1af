//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package codesearch provides the tool surface offered to the
// question-answering agent: keyword search over indexed functions, full
// function retrieval, and the terminal answer action.
package codesearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-repoqa-go/index"
	"trpc.group/trpc-go/trpc-repoqa-go/tool"
	"trpc.group/trpc-go/trpc-repoqa-go/tool/function"
)

// Tool names advertised to the model.
const (
	ToolSearch = "search_repo"
	ToolRead   = "read_function"
	ToolAnswer = "return_answer"
)

// ErrUnknownTool is returned by Dispatch for names outside the surface's
// vocabulary. Callers are expected to skip such calls rather than fail.
var ErrUnknownTool = errors.New("codesearch: unknown tool")

// AnswerMode selects the answer shape accepted by the return_answer tool.
// It is fixed once per surface, not per call.
type AnswerMode int

// Answer shape variants.
const (
	// AnswerModeFlat accepts {answer, functions}.
	AnswerModeFlat AnswerMode = iota
	// AnswerModeStructured accepts {explanation, code_snippet, code_explanation, functions}.
	AnswerModeStructured
)

// SearchArgs are the arguments of the search_repo tool.
type SearchArgs struct {
	Keywords []string `json:"keywords" jsonschema:"description=Keywords to search for in function names and code and documentation. All keywords must match."`
}

// SearchResponse is the search_repo tool result. An empty result carries a
// note instead of matches; it is a normal outcome the agent recovers from
// by trying different keywords.
type SearchResponse struct {
	Results []index.SearchResult `json:"results,omitempty"`
	Note    string               `json:"note,omitempty"`
}

// ReadArgs are the arguments of the read_function tool.
type ReadArgs struct {
	FuncPath string `json:"func_path" jsonschema:"description=Path of the file containing the function as returned by search_repo."`
	FuncName string `json:"func_name" jsonschema:"description=Exact name of the function to read."`
}

// ReadResponse is the read_function tool result. A missing key yields
// Found=false with a note, never an error.
type ReadResponse struct {
	Found    bool                  `json:"found"`
	Function *index.FunctionRecord `json:"function,omitempty"`
	Note     string                `json:"note,omitempty"`
}

// FlatAnswerArgs are the return_answer arguments in flat mode.
type FlatAnswerArgs struct {
	Answer    string   `json:"answer" jsonschema:"description=The answer to the user's question."`
	Functions []string `json:"functions" jsonschema:"description=Names of the functions the answer is based on."`
}

// StructuredAnswerArgs are the return_answer arguments in structured mode.
type StructuredAnswerArgs struct {
	Explanation     string   `json:"explanation" jsonschema:"description=Explanation answering the user's question."`
	CodeSnippet     string   `json:"code_snippet" jsonschema:"description=The most relevant code snippet."`
	CodeExplanation string   `json:"code_explanation" jsonschema:"description=How the code snippet answers the question."`
	Functions       []string `json:"functions" jsonschema:"description=Names of the functions the answer is based on."`
}

// FinalAnswer is the agent's terminal output, produced exactly once per
// successful episode by the return_answer tool.
type FinalAnswer struct {
	Answer          string   `json:"answer,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
	CodeSnippet     string   `json:"code_snippet,omitempty"`
	CodeExplanation string   `json:"code_explanation,omitempty"`
	Functions       []string `json:"functions"`
}

// Candidate flattens the answer's textual fields into the single string
// handed to the judge.
func (a *FinalAnswer) Candidate() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{a.Answer, a.Explanation, a.CodeSnippet, a.CodeExplanation} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " \n")
}

// Option configures a Surface.
type Option func(*Surface)

// WithMaxResults caps search results per query.
func WithMaxResults(n int) Option {
	return func(s *Surface) {
		s.maxResults = n
	}
}

// WithAnswerMode selects the answer shape for the deployment.
func WithAnswerMode(mode AnswerMode) Option {
	return func(s *Surface) {
		s.answerMode = mode
	}
}

// Surface binds the three capabilities to one target repository and an
// injected index client. Search and read are read-only and may be invoked
// any number of times; return_answer is a pure constructor whose first
// invocation ends the episode.
type Surface struct {
	client     *index.Client
	repo       string
	maxResults int
	answerMode AnswerMode

	search tool.CallableTool
	read   tool.CallableTool
	answer tool.CallableTool
}

// New creates a tool surface for one repository.
func New(client *index.Client, repo string, opts ...Option) *Surface {
	s := &Surface{
		client:     client,
		repo:       repo,
		maxResults: index.DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.search = function.NewFunctionTool(s.doSearch,
		function.WithName(ToolSearch),
		function.WithDescription(fmt.Sprintf(
			"Search the %s repository for functions whose name, code or documentation match all given keywords. "+
				"Returns up to %d candidates with short previews.", repo, s.maxResults)),
	)
	s.read = function.NewFunctionTool(s.doRead,
		function.WithName(ToolRead),
		function.WithDescription(
			"Read the full source, documentation and metadata of one function by its exact path and name."),
	)
	switch s.answerMode {
	case AnswerModeStructured:
		s.answer = function.NewFunctionTool(s.doStructuredAnswer,
			function.WithName(ToolAnswer),
			function.WithDescription(
				"Return the final answer to the user's question. Call this exactly once, when you are done searching."),
		)
	default:
		s.answer = function.NewFunctionTool(s.doFlatAnswer,
			function.WithName(ToolAnswer),
			function.WithDescription(
				"Return the final answer to the user's question. Call this exactly once, when you are done searching."),
		)
	}
	return s
}

// Repo returns the fixed target repository.
func (s *Surface) Repo() string {
	return s.repo
}

// Tools returns the tool vocabulary advertised to the model, keyed by name.
func (s *Surface) Tools() map[string]tool.Tool {
	return map[string]tool.Tool{
		ToolSearch: s.search,
		ToolRead:   s.read,
		ToolAnswer: s.answer,
	}
}

// Dispatch resolves a tool name and invokes it with JSON arguments.
// It returns the tool result and, for return_answer, the captured
// FinalAnswer. Unknown names return ErrUnknownTool; any other error is a
// genuine dispatch fault.
func (s *Surface) Dispatch(ctx context.Context, name string, jsonArgs []byte) (any, *FinalAnswer, error) {
	switch name {
	case ToolSearch:
		result, err := s.search.Call(ctx, jsonArgs)
		return result, nil, err
	case ToolRead:
		result, err := s.read.Call(ctx, jsonArgs)
		return result, nil, err
	case ToolAnswer:
		result, err := s.answer.Call(ctx, jsonArgs)
		if err != nil {
			return nil, nil, err
		}
		answer, ok := result.(*FinalAnswer)
		if !ok {
			return nil, nil, fmt.Errorf("return_answer produced %T, want *FinalAnswer", result)
		}
		return result, answer, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func (s *Surface) doSearch(ctx context.Context, args SearchArgs) (*SearchResponse, error) {
	results, err := s.client.Search(ctx, s.repo, args.Keywords, s.maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &SearchResponse{
			Note: "No matching functions found. Try different or fewer keywords.",
		}, nil
	}
	return &SearchResponse{Results: results}, nil
}

func (s *Surface) doRead(ctx context.Context, args ReadArgs) (*ReadResponse, error) {
	record, err := s.client.Lookup(ctx, s.repo, args.FuncPath, args.FuncName)
	if errors.Is(err, index.ErrNotFound) {
		return &ReadResponse{
			Found: false,
			Note:  fmt.Sprintf("No function %q at %q. Use search_repo to find the exact path and name.", args.FuncName, args.FuncPath),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ReadResponse{Found: true, Function: record}, nil
}

func (s *Surface) doFlatAnswer(_ context.Context, args FlatAnswerArgs) (*FinalAnswer, error) {
	return &FinalAnswer{
		Answer:    args.Answer,
		Functions: args.Functions,
	}, nil
}

func (s *Surface) doStructuredAnswer(_ context.Context, args StructuredAnswerArgs) (*FinalAnswer, error) {
	return &FinalAnswer{
		Explanation:     args.Explanation,
		CodeSnippet:     args.CodeSnippet,
		CodeExplanation: args.CodeExplanation,
		Functions:       args.Functions,
	}, nil
}
