//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-repoqa-go/agent"
	"trpc.group/trpc-go/trpc-repoqa-go/scenario"
	"trpc.group/trpc-go/trpc-repoqa-go/scorer"
)

type rolloutParam struct {
	idx     int
	ctx     context.Context
	sc      scenario.Scenario
	scorer  *scorer.Scorer
	results []*agent.Trajectory
	wg      *sync.WaitGroup
}

func (p *rolloutParam) reset() {
	p.idx = 0
	p.ctx = nil
	p.sc = scenario.Scenario{}
	p.scorer = nil
	p.results = nil
	p.wg = nil
}

var rolloutParamPool = &sync.Pool{
	New: func() any { return new(rolloutParam) },
}

func createRolloutPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*rolloutParam)
		if !ok {
			panic("rollout pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			rolloutParamPool.Put(param)
		}()
		param.results[param.idx] = param.scorer.Score(param.ctx, param.sc)
	})
	if err != nil {
		return nil, fmt.Errorf("create rollout pool: %w", err)
	}
	return pool, nil
}
