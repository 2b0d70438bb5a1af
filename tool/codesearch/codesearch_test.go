//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package codesearch

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-repoqa-go/index"
)

const testSchema = `
CREATE TABLE github_code (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repository_name TEXT NOT NULL,
    func_path_in_repository TEXT NOT NULL,
    func_name TEXT NOT NULL,
    whole_func_string TEXT NOT NULL,
    language TEXT,
    func_documentation_string TEXT,
    func_code_tokens TEXT,
    UNIQUE(repository_name, func_path_in_repository, func_name)
);

CREATE VIRTUAL TABLE github_code_fts USING fts5(
    func_name,
    whole_func_string,
    func_documentation_string,
    content='github_code',
    content_rowid='id'
);

CREATE TRIGGER github_code_ai AFTER INSERT ON github_code BEGIN
    INSERT INTO github_code_fts (rowid, func_name, whole_func_string, func_documentation_string)
    VALUES (new.id, new.func_name, new.whole_func_string, new.func_documentation_string);
END;
`

func newTestSurface(t *testing.T, opts ...Option) *Surface {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO github_code (
		repository_name, func_path_in_repository, func_name,
		whole_func_string, language, func_documentation_string, func_code_tokens
	) VALUES
	('acme/server', 'net/listener.go', 'accept_loop', 'func accept_loop() { accept connections }', 'go', 'Accept incoming connections.', ''),
	('acme/server', 'net/dialer.go', 'dial', 'func dial() { open connection }', 'go', 'Dial a remote host.', '')`)
	require.NoError(t, err)

	return New(index.NewClient(db), "acme/server", opts...)
}

func TestSurface_Tools(t *testing.T) {
	s := newTestSurface(t)
	assert.Equal(t, "acme/server", s.Repo())

	tools := s.Tools()
	require.Len(t, tools, 3)
	for _, name := range []string{ToolSearch, ToolRead, ToolAnswer} {
		tl, ok := tools[name]
		require.True(t, ok, name)
		decl := tl.Declaration()
		assert.Equal(t, name, decl.Name)
		assert.NotEmpty(t, decl.Description)
		require.NotNil(t, decl.InputSchema)
		assert.Equal(t, "object", decl.InputSchema.Type)
	}
}

func TestDispatch_Search(t *testing.T) {
	s := newTestSurface(t)

	result, answer, err := s.Dispatch(context.Background(), ToolSearch, []byte(`{"keywords":["accept"]}`))
	require.NoError(t, err)
	assert.Nil(t, answer)

	rsp, ok := result.(*SearchResponse)
	require.True(t, ok)
	require.Len(t, rsp.Results, 1)
	assert.Equal(t, "accept_loop", rsp.Results[0].FuncName)
	assert.Empty(t, rsp.Note)
}

func TestDispatch_SearchNoMatches(t *testing.T) {
	s := newTestSurface(t)

	result, answer, err := s.Dispatch(context.Background(), ToolSearch, []byte(`{"keywords":["zeppelin"]}`))
	require.NoError(t, err)
	assert.Nil(t, answer)

	rsp := result.(*SearchResponse)
	assert.Empty(t, rsp.Results)
	assert.Contains(t, rsp.Note, "No matching functions")
}

func TestDispatch_Read(t *testing.T) {
	s := newTestSurface(t)

	result, answer, err := s.Dispatch(context.Background(), ToolRead,
		[]byte(`{"func_path":"net/dialer.go","func_name":"dial"}`))
	require.NoError(t, err)
	assert.Nil(t, answer)

	rsp := result.(*ReadResponse)
	require.True(t, rsp.Found)
	assert.Equal(t, "func dial() { open connection }", rsp.Function.FullSource)
}

func TestDispatch_ReadNotFound(t *testing.T) {
	s := newTestSurface(t)

	result, answer, err := s.Dispatch(context.Background(), ToolRead,
		[]byte(`{"func_path":"net/dialer.go","func_name":"no_such"}`))
	require.NoError(t, err)
	assert.Nil(t, answer)

	rsp := result.(*ReadResponse)
	assert.False(t, rsp.Found)
	assert.Nil(t, rsp.Function)
	assert.Contains(t, rsp.Note, "no_such")
}

func TestDispatch_FlatAnswer(t *testing.T) {
	s := newTestSurface(t)

	result, answer, err := s.Dispatch(context.Background(), ToolAnswer,
		[]byte(`{"answer":"It accepts connections.","functions":["accept_loop"]}`))
	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.Same(t, result, answer)
	assert.Equal(t, "It accepts connections.", answer.Answer)
	assert.Equal(t, []string{"accept_loop"}, answer.Functions)
}

func TestDispatch_StructuredAnswer(t *testing.T) {
	s := newTestSurface(t, WithAnswerMode(AnswerModeStructured))

	_, answer, err := s.Dispatch(context.Background(), ToolAnswer,
		[]byte(`{"explanation":"The loop accepts.","code_snippet":"func accept_loop()","code_explanation":"Listens forever.","functions":["accept_loop"]}`))
	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.Equal(t, "The loop accepts.", answer.Explanation)
	assert.Equal(t, "func accept_loop()", answer.CodeSnippet)
	assert.Equal(t, "Listens forever.", answer.CodeExplanation)
	assert.Empty(t, answer.Answer)
}

func TestDispatch_UnknownTool(t *testing.T) {
	s := newTestSurface(t)

	_, _, err := s.Dispatch(context.Background(), "grep_repo", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestDispatch_BadArguments(t *testing.T) {
	s := newTestSurface(t)

	_, _, err := s.Dispatch(context.Background(), ToolSearch, []byte(`not json`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownTool)
}

func TestFinalAnswer_Candidate(t *testing.T) {
	tests := []struct {
		name   string
		answer *FinalAnswer
		want   string
	}{
		{
			name:   "nil answer",
			answer: nil,
			want:   "",
		},
		{
			name:   "flat",
			answer: &FinalAnswer{Answer: "It accepts connections."},
			want:   "It accepts connections.",
		},
		{
			name: "structured",
			answer: &FinalAnswer{
				Explanation:     "The loop accepts.",
				CodeSnippet:     "func accept_loop()",
				CodeExplanation: "Listens forever.",
			},
			want: "The loop accepts. \nfunc accept_loop() \nListens forever.",
		},
		{
			name: "empty fields skipped",
			answer: &FinalAnswer{
				Explanation:     "Only this.",
				CodeExplanation: "And this.",
			},
			want: "Only this. \nAnd this.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.answer.Candidate())
		})
	}
}
