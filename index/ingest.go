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
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"trpc.group/trpc-go/trpc-repoqa-go/log"
)

// Database schema: one row per indexed function plus an external-content
// FTS5 table kept in sync by triggers.
const sqlCreateTables = `
DROP TABLE IF EXISTS github_code_fts;
DROP TABLE IF EXISTS github_code;

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

CREATE INDEX idx_github_code_repo_name ON github_code(repository_name);
CREATE INDEX idx_github_code_language ON github_code(language);
CREATE INDEX idx_github_code_repo_path ON github_code(repository_name, func_path_in_repository);

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

CREATE TRIGGER github_code_ad AFTER DELETE ON github_code BEGIN
    DELETE FROM github_code_fts WHERE rowid=old.id;
END;

CREATE TRIGGER github_code_au AFTER UPDATE ON github_code BEGIN
    UPDATE github_code_fts SET
        func_name=new.func_name,
        whole_func_string=new.whole_func_string,
        func_documentation_string=new.func_documentation_string
    WHERE rowid=old.id;
END;
`

// schemaError decorates schema-creation failures. A missing fts5 module
// means the binary was built without the sqlite_fts5 tag.
func schemaError(err error) error {
	if strings.Contains(err.Error(), "fts5") {
		return fmt.Errorf("create schema: %w (rebuild with -tags sqlite_fts5)", err)
	}
	return fmt.Errorf("create schema: %w", err)
}

// corpusRow mirrors one CodeSearchNet-style JSONL line.
type corpusRow struct {
	Repo           string   `json:"repo"`
	Path           string   `json:"path"`
	FuncName       string   `json:"func_name"`
	OriginalString string   `json:"original_string"`
	Language       string   `json:"language"`
	Docstring      string   `json:"docstring"`
	CodeTokens     []string `json:"code_tokens"`
}

// Build creates (or overwrites) the index database at dbPath and ingests
// the given corpus JSONL files, keeping only rows whose language is in
// languages (all languages when the filter is empty).
func Build(ctx context.Context, dbPath string, corpusFiles []string, languages []string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("index %s already exists (use overwrite)", dbPath)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open index %s: %w", dbPath, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqlCreateTables); err != nil {
		return schemaError(err)
	}

	wanted := map[string]bool{}
	for _, lang := range languages {
		wanted[strings.ToLower(lang)] = true
	}

	var total int
	for _, file := range corpusFiles {
		n, err := ingestFile(ctx, db, file, wanted)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", file, err)
		}
		log.Infof("index: ingested %d functions from %s", n, file)
		total += n
	}
	log.Infof("index: built %s with %d functions", dbPath, total)
	return nil
}

func ingestFile(ctx context.Context, db *sql.DB, file string, wanted map[string]bool) (int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO github_code (
		repository_name, func_path_in_repository, func_name,
		whole_func_string, language, func_documentation_string, func_code_tokens
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int
	scanner := bufio.NewScanner(f)
	// Whole functions on one line can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row corpusRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			log.Warnf("index: skipping malformed corpus line: %v", err)
			continue
		}
		if len(wanted) > 0 && !wanted[strings.ToLower(row.Language)] {
			continue
		}
		if row.Repo == "" || row.FuncName == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			row.Repo, row.Path, row.FuncName,
			row.OriginalString, row.Language, row.Docstring,
			strings.Join(row.CodeTokens, " "),
		); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	return count, tx.Commit()
}
