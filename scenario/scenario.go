//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package scenario loads question/reference-answer/repository evaluation
// units from JSONL datasets.
package scenario

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"encoding/json"

	"trpc.group/trpc-go/trpc-repoqa-go/log"
)

// DefaultRealismThreshold filters out low-quality synthetic questions.
const DefaultRealismThreshold = 0.9

// Split identifies a dataset partition.
type Split string

// Dataset splits.
const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
)

// Scenario is one evaluation unit. Immutable once loaded.
type Scenario struct {
	ID           int      `json:"id"`
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Repo         string   `json:"repo"`
	Functions    []string `json:"functions"`
	HowRealistic float64  `json:"how_realistic"`
	Split        string   `json:"split"`
}

type loadOptions struct {
	split            Split
	limit            int
	shuffle          bool
	seed             int64
	realismThreshold float64
}

// Option configures scenario loading.
type Option func(*loadOptions)

// WithSplit keeps only scenarios of the given split.
func WithSplit(split Split) Option {
	return func(o *loadOptions) {
		o.split = split
	}
}

// WithLimit keeps at most n scenarios (applied after filtering and shuffling).
func WithLimit(n int) Option {
	return func(o *loadOptions) {
		o.limit = n
	}
}

// WithShuffle randomizes scenario order.
func WithShuffle(shuffle bool) Option {
	return func(o *loadOptions) {
		o.shuffle = shuffle
	}
}

// WithSeed fixes the shuffle seed for reproducible runs.
func WithSeed(seed int64) Option {
	return func(o *loadOptions) {
		o.seed = seed
	}
}

// WithRealismThreshold overrides the minimum how_realistic score.
func WithRealismThreshold(threshold float64) Option {
	return func(o *loadOptions) {
		o.realismThreshold = threshold
	}
}

// LoadFile loads scenarios sequentially from a JSONL file, dropping
// scenarios below the realism threshold.
func LoadFile(path string, opts ...Option) ([]Scenario, error) {
	o := loadOptions{
		seed:             time.Now().UnixNano(),
		realismThreshold: DefaultRealismThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenarios %s: %w", path, err)
	}
	defer f.Close()

	var scenarios []Scenario
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var s Scenario
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("parse scenario line: %w", err)
		}
		if o.split != "" && s.Split != string(o.split) {
			continue
		}
		if s.HowRealistic < o.realismThreshold {
			continue
		}
		scenarios = append(scenarios, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read scenarios %s: %w", path, err)
	}

	if o.shuffle {
		rng := rand.New(rand.NewSource(o.seed))
		rng.Shuffle(len(scenarios), func(i, j int) {
			scenarios[i], scenarios[j] = scenarios[j], scenarios[i]
		})
	}
	if o.limit > 0 && len(scenarios) > o.limit {
		scenarios = scenarios[:o.limit]
	}

	log.Infof("scenario: loaded %d scenarios from %s", len(scenarios), path)
	return scenarios, nil
}
