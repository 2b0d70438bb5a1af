//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(sqlCreateTables)
	require.NoError(t, err)
	return NewClient(db)
}

func insertFunction(t *testing.T, c *Client, repo, path, name, source, docs string) {
	t.Helper()
	_, err := c.db.Exec(`INSERT INTO github_code (
		repository_name, func_path_in_repository, func_name,
		whole_func_string, language, func_documentation_string, func_code_tokens
	) VALUES (?, ?, ?, ?, 'go', ?, '')`, repo, path, name, source, docs)
	require.NoError(t, err)
}

func TestSearch_ConjunctiveMatch(t *testing.T) {
	c := newTestClient(t)
	insertFunction(t, c, "acme/server", "net/listener.go", "accept_loop",
		"func accept_loop() { listen and accept connections }", "Accept incoming connections.")
	insertFunction(t, c, "acme/server", "net/dialer.go", "dial",
		"func dial() { open a connection }", "Dial a remote host.")

	ctx := context.Background()

	results, err := c.Search(ctx, "acme/server", []string{"accept", "connections"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "accept_loop", results[0].FuncName)
	assert.Equal(t, "net/listener.go", results[0].FuncPath)

	// A keyword missing from every row matches nothing, even when the other
	// keywords match.
	results, err = c.Search(ctx, "acme/server", []string{"accept", "zeppelin"}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ScopedToRepo(t *testing.T) {
	c := newTestClient(t)
	insertFunction(t, c, "acme/server", "a.go", "handle", "func handle() {}", "")
	insertFunction(t, c, "acme/client", "b.go", "handle", "func handle() {}", "")

	results, err := c.Search(context.Background(), "acme/client", []string{"handle"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "acme/client", results[0].Repo)
}

func TestSearch_SubstringFallback(t *testing.T) {
	c := newTestClient(t)
	// camelCase identifiers are single full-text tokens, so a partial keyword
	// only hits through the case-sensitive substring pass.
	insertFunction(t, c, "acme/server", "cfg.go", "parseConfig",
		"func parseConfig() {}", "")

	results, err := c.Search(context.Background(), "acme/server", []string{"seConf"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "parseConfig", results[0].FuncName)

	// instr is case-sensitive.
	results, err = c.Search(context.Background(), "acme/server", []string{"seconf"}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_DedupeAcrossStrategies(t *testing.T) {
	c := newTestClient(t)
	// This row matches both the full-text pass and the substring pass; it
	// must appear exactly once.
	insertFunction(t, c, "acme/server", "cfg.go", "parse",
		"func parse() { read the config }", "parse the config file")

	results, err := c.Search(context.Background(), "acme/server", []string{"parse"}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_CapsResults(t *testing.T) {
	c := newTestClient(t)
	for i := 0; i < 15; i++ {
		insertFunction(t, c, "acme/server", fmt.Sprintf("f%d.go", i), fmt.Sprintf("handler%d", i),
			"func handler() { serve request }", "")
	}

	results, err := c.Search(context.Background(), "acme/server", []string{"serve"}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 10)

	// Non-positive caps fall back to the default.
	results, err = c.Search(context.Background(), "acme/server", []string{"serve"}, 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultMaxResults)
}

func TestSearch_EmptyKeywordsIsWildcard(t *testing.T) {
	c := newTestClient(t)
	insertFunction(t, c, "acme/server", "a.go", "first", "func first() {}", "")
	insertFunction(t, c, "acme/server", "b.go", "second", "func second() {}", "")

	results, err := c.Search(context.Background(), "acme/server", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_TruncatesPreviews(t *testing.T) {
	c := newTestClient(t)
	longDoc := strings.Repeat("d", 500)
	longSource := strings.Repeat("s", 500)
	insertFunction(t, c, "acme/server", "a.go", "verbose", longSource, longDoc)

	results, err := c.Search(context.Background(), "acme/server", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].DocSnippet, previewLen)
	assert.True(t, strings.HasSuffix(results[0].DocSnippet, "..."))
	assert.Len(t, results[0].CodeSnippet, previewLen)
}

func TestSearch_BadFTSKeywordsStillSearch(t *testing.T) {
	c := newTestClient(t)
	insertFunction(t, c, "acme/server", "a.go", "weird",
		`func weird() { return "a(b" }`, "")

	// Keywords with FTS metacharacters must not fail the search; the
	// substring pass still runs.
	results, err := c.Search(context.Background(), "acme/server", []string{`a(b`}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "weird", results[0].FuncName)
}

func TestLookup(t *testing.T) {
	c := newTestClient(t)
	insertFunction(t, c, "acme/server", "net/listener.go", "accept_loop",
		"func accept_loop() {}", "Accept incoming connections.")

	ctx := context.Background()

	rec, err := c.Lookup(ctx, "acme/server", "net/listener.go", "accept_loop")
	require.NoError(t, err)
	assert.Equal(t, "acme/server", rec.Repo)
	assert.Equal(t, "accept_loop", rec.FuncName)
	assert.Equal(t, "func accept_loop() {}", rec.FullSource)
	assert.Equal(t, "go", rec.Language)
	assert.Equal(t, "Accept incoming connections.", rec.Documentation)

	_, err = c.Lookup(ctx, "acme/server", "net/listener.go", "no_such_function")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "other/repo", "net/listener.go", "accept_loop")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReposWithAtLeast(t *testing.T) {
	c := newTestClient(t)
	for i := 0; i < 3; i++ {
		insertFunction(t, c, "acme/big", fmt.Sprintf("f%d.go", i), fmt.Sprintf("fn%d", i), "func fn() {}", "")
	}
	insertFunction(t, c, "acme/small", "f.go", "fn", "func fn() {}", "")

	counts, err := c.ReposWithAtLeast(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "acme/big", counts[0].Repo)
	assert.Equal(t, 3, counts[0].Count)
}

func TestFunctionsByPath(t *testing.T) {
	c := newTestClient(t)
	insertFunction(t, c, "acme/big", "hot.go", "a", "func a() {}", "")
	insertFunction(t, c, "acme/big", "hot.go", "b", "func b() {}", "")
	insertFunction(t, c, "acme/big", "cold.go", "c", "func c() {}", "")

	paths, err := c.FunctionsByPath(context.Background(), "acme/big", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"hot.go": 2}, paths)
}

func TestSubstringVariants(t *testing.T) {
	assert.Equal(t, [][]string{{"solo"}}, substringVariants([]string{"solo"}))
	assert.Equal(t, [][]string{
		{"parse", "config"},
		{"parse_config"},
		{"parseconfig"},
	}, substringVariants([]string{"parse", "config"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 200))
	got := truncate(strings.Repeat("x", 300), 200)
	assert.Len(t, got, 200)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// A multibyte rune straddling the cut must not be split.
	got := truncate(strings.Repeat("界", 100), 200)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 200)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, strings.HasPrefix(got, "界"))
}

func TestSchemaError(t *testing.T) {
	err := schemaError(errors.New("no such module: fts5"))
	assert.Contains(t, err.Error(), "-tags sqlite_fts5")

	err = schemaError(errors.New("disk I/O error"))
	assert.NotContains(t, err.Error(), "sqlite_fts5")
	assert.Contains(t, err.Error(), "create schema")
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.jsonl")
	dbPath := filepath.Join(dir, "index.db")

	lines := []string{
		`{"repo":"acme/server","path":"a.go","func_name":"handle","original_string":"func handle() {}","language":"go","docstring":"Handle a request.","code_tokens":["func","handle"]}`,
		`{"repo":"acme/server","path":"b.py","func_name":"serve","original_string":"def serve(): pass","language":"python","docstring":"","code_tokens":[]}`,
		`not json at all`,
		`{"repo":"","path":"x.go","func_name":"orphan","original_string":"func orphan() {}","language":"go"}`,
	}
	require.NoError(t, os.WriteFile(corpus, []byte(strings.Join(lines, "\n")), 0o644))

	ctx := context.Background()
	require.NoError(t, Build(ctx, dbPath, []string{corpus}, []string{"go"}, false))

	// An existing index is only replaced when asked.
	err := Build(ctx, dbPath, []string{corpus}, []string{"go"}, false)
	require.Error(t, err)
	require.NoError(t, Build(ctx, dbPath, []string{corpus}, []string{"go"}, true))

	c, err := Open(dbPath)
	require.NoError(t, err)
	defer c.Close()

	// Only the well-formed go row survives the language filter.
	counts, err := c.ReposWithAtLeast(ctx, 1)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)

	rec, err := c.Lookup(ctx, "acme/server", "a.go", "handle")
	require.NoError(t, err)
	assert.Equal(t, []string{"func", "handle"}, rec.CodeTokens)
}
