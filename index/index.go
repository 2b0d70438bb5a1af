//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package index provides a keyword-searchable store of code functions
// backed by SQLite FTS5.
//
// The sqlite3 driver only compiles FTS5 support under the sqlite_fts5
// build tag, so binaries and tests must be built with -tags sqlite_fts5
// (the Makefile targets do this).
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"trpc.group/trpc-go/trpc-repoqa-go/log"
)

// ErrNotFound is returned by Lookup when no function matches the key.
var ErrNotFound = errors.New("index: function not found")

// DefaultMaxResults caps the number of search results per query.
const DefaultMaxResults = 10

// previewLen bounds documentation and code previews in search results.
const previewLen = 200

// SearchResult is one ranked, deduplicated search candidate.
type SearchResult struct {
	Repo        string `json:"repo"`
	FuncPath    string `json:"func_path"`
	FuncName    string `json:"func_name"`
	DocSnippet  string `json:"doc_snippet,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`
}

// FunctionRecord is the full detail for one indexed function, keyed
// uniquely by (repo, func_path, func_name).
type FunctionRecord struct {
	Repo          string   `json:"repo"`
	FuncPath      string   `json:"func_path"`
	FuncName      string   `json:"func_name"`
	FullSource    string   `json:"full_source"`
	Language      string   `json:"language,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	CodeTokens    []string `json:"code_tokens,omitempty"`
}

// Client is a handle to the function index. It performs read-only queries
// and is safe for concurrent use.
type Client struct {
	db *sql.DB
}

// Open opens the index database read-only.
func Open(path string) (*Client, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Client{db: db}, nil
}

// NewClient wraps an existing database handle. Useful for tests with
// in-memory databases.
func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close releases the underlying database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

const searchColumns = `
	gc.repository_name,
	gc.func_path_in_repository,
	gc.func_name,
	COALESCE(gc.func_documentation_string, ''),
	gc.whole_func_string`

// Search returns functions of the given repository whose indexed text
// matches all keywords. Two strategies are applied: a relevance-ranked
// full-text match and a case-sensitive substring match that supplements it,
// so that natural-language keywords still hit snake_case or camelCase
// identifiers. Results are deduplicated by (repo, path, name), capped at
// maxResults and carry bounded previews. An empty result is a normal
// outcome, not an error.
func (c *Client) Search(ctx context.Context, repo string, keywords []string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// An empty keyword list behaves as a wildcard match bounded by the cap.
	if len(keywords) == 0 {
		return c.wildcard(ctx, repo, maxResults)
	}

	var (
		results []SearchResult
		seen    = map[string]bool{}
	)

	// Strategy 1: relevance-ranked full-text conjunctive match.
	ftsResults, err := c.searchFTS(ctx, repo, keywords, maxResults)
	if err != nil {
		// A failed MATCH (e.g. keywords that break the FTS syntax) must not
		// kill the episode; the substring pass below still runs.
		log.Warnf("index: full-text search failed for %v: %v", keywords, err)
	}
	appendDeduped(&results, seen, ftsResults, maxResults)

	// Strategy 2: substring match, supplementing the full-text hits and
	// covering naming-convention mismatches via joined-identifier variants.
	if len(results) < maxResults {
		for _, variant := range substringVariants(keywords) {
			subResults, err := c.searchSubstring(ctx, repo, variant, maxResults)
			if err != nil {
				return nil, fmt.Errorf("substring search: %w", err)
			}
			appendDeduped(&results, seen, subResults, maxResults)
			if len(results) >= maxResults {
				break
			}
		}
	}

	return results, nil
}

func (c *Client) wildcard(ctx context.Context, repo string, maxResults int) ([]SearchResult, error) {
	query := `SELECT ` + searchColumns + `
	FROM github_code gc
	WHERE gc.repository_name = ?
	ORDER BY gc.id
	LIMIT ?`
	return c.queryResults(ctx, query, repo, maxResults)
}

func (c *Client) searchFTS(ctx context.Context, repo string, keywords []string, maxResults int) ([]SearchResult, error) {
	// Quote each keyword so identifier characters do not break the FTS syntax.
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		quoted = append(quoted, `"`+strings.ReplaceAll(kw, `"`, `""`)+`"`)
	}
	ftsQuery := strings.Join(quoted, " AND ")

	query := `SELECT DISTINCT ` + searchColumns + `
	FROM github_code gc
	JOIN github_code_fts fts ON gc.id = fts.rowid
	WHERE github_code_fts MATCH ?
	AND gc.repository_name = ?
	ORDER BY fts.rank
	LIMIT ?`
	return c.queryResults(ctx, query, ftsQuery, repo, maxResults)
}

func (c *Client) searchSubstring(ctx context.Context, repo string, keywords []string, maxResults int) ([]SearchResult, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + searchColumns + `
	FROM github_code gc
	WHERE gc.repository_name = ?`)

	args := []any{repo}
	for _, kw := range keywords {
		// instr is case-sensitive, unlike LIKE.
		sb.WriteString(`
	AND instr(gc.func_name || ' ' || gc.whole_func_string || ' ' || COALESCE(gc.func_documentation_string, ''), ?) > 0`)
		args = append(args, kw)
	}
	sb.WriteString(`
	ORDER BY gc.id
	LIMIT ?`)
	args = append(args, maxResults)

	return c.queryResults(ctx, sb.String(), args...)
}

func (c *Client) queryResults(ctx context.Context, query string, args ...any) ([]SearchResult, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var docs, source string
		if err := rows.Scan(&r.Repo, &r.FuncPath, &r.FuncName, &docs, &source); err != nil {
			return nil, err
		}
		r.DocSnippet = truncate(docs, previewLen)
		r.CodeSnippet = truncate(source, previewLen)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Lookup returns the full record for one function by exact key.
// Returns ErrNotFound when the key does not exist.
func (c *Client) Lookup(ctx context.Context, repo, funcPath, funcName string) (*FunctionRecord, error) {
	query := `SELECT
	repository_name,
	func_path_in_repository,
	func_name,
	whole_func_string,
	COALESCE(language, ''),
	COALESCE(func_documentation_string, ''),
	COALESCE(func_code_tokens, '')
	FROM github_code
	WHERE repository_name = ? AND func_path_in_repository = ? AND func_name = ?`

	var rec FunctionRecord
	var tokens string
	err := c.db.QueryRowContext(ctx, query, repo, funcPath, funcName).Scan(
		&rec.Repo, &rec.FuncPath, &rec.FuncName,
		&rec.FullSource, &rec.Language, &rec.Documentation, &tokens,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s %s: %w", repo, funcPath, funcName, err)
	}
	if tokens != "" {
		rec.CodeTokens = strings.Fields(tokens)
	}
	return &rec, nil
}

// RepoCount pairs a repository name with its indexed function count.
type RepoCount struct {
	Repo  string
	Count int
}

// ReposWithAtLeast lists repositories with at least minFunctions indexed
// functions, largest first.
func (c *Client) ReposWithAtLeast(ctx context.Context, minFunctions int) ([]RepoCount, error) {
	query := `SELECT repository_name, COUNT(*) AS function_count
	FROM github_code
	GROUP BY repository_name
	HAVING COUNT(*) >= ?
	ORDER BY function_count DESC`

	rows, err := c.db.QueryContext(ctx, query, minFunctions)
	if err != nil {
		return nil, fmt.Errorf("repo stats: %w", err)
	}
	defer rows.Close()

	var counts []RepoCount
	for rows.Next() {
		var rc RepoCount
		if err := rows.Scan(&rc.Repo, &rc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}

// FunctionsByPath groups a repository's functions by file path, keeping
// only paths with at least minPerPath functions.
func (c *Client) FunctionsByPath(ctx context.Context, repo string, minPerPath int) (map[string]int, error) {
	query := `SELECT func_path_in_repository, COUNT(*) AS func_count
	FROM github_code
	WHERE repository_name = ?
	GROUP BY func_path_in_repository
	HAVING COUNT(*) >= ?
	ORDER BY func_count DESC`

	rows, err := c.db.QueryContext(ctx, query, repo, minPerPath)
	if err != nil {
		return nil, fmt.Errorf("path stats for %s: %w", repo, err)
	}
	defer rows.Close()

	pathToCount := map[string]int{}
	for rows.Next() {
		var path string
		var count int
		if err := rows.Scan(&path, &count); err != nil {
			return nil, err
		}
		pathToCount[path] = count
	}
	return pathToCount, rows.Err()
}

func appendDeduped(results *[]SearchResult, seen map[string]bool, candidates []SearchResult, cap int) {
	for _, r := range candidates {
		if len(*results) >= cap {
			return
		}
		key := r.Repo + "\x00" + r.FuncPath + "\x00" + r.FuncName
		if seen[key] {
			continue
		}
		seen[key] = true
		*results = append(*results, r)
	}
}

// substringVariants expands keywords for the substring pass: the keywords
// themselves, plus joined snake_case identifiers for multi-word queries,
// so "config parse" can still hit parse_config-style names.
func substringVariants(keywords []string) [][]string {
	variants := [][]string{keywords}
	if len(keywords) > 1 {
		variants = append(variants,
			[]string{strings.Join(keywords, "_")},
			[]string{strings.Join(keywords, "")},
		)
	}
	return variants
}

// truncate bounds s to n bytes, cutting on a rune boundary so previews
// stay valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
