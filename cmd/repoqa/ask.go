//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-repoqa-go/agent"
	"trpc.group/trpc-go/trpc-repoqa-go/index"
	"trpc.group/trpc-go/trpc-repoqa-go/model/openai"
	"trpc.group/trpc-go/trpc-repoqa-go/tool/codesearch"
)

var (
	flagRepo     string
	flagMaxTurns int
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one agent episode against a repository",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().StringVar(&flagRepo, "repo", "", "target repository name (required)")
	cmd.Flags().IntVar(&flagMaxTurns, "max-turns", agent.DefaultMaxTurns, "turn budget for the episode")
	cmd.MarkFlagRequired("repo")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	client, err := index.Open(flagDB)
	if err != nil {
		return err
	}
	defer client.Close()

	surface := codesearch.New(client, flagRepo, surfaceOptions()...)
	loop := agent.New(openai.New(flagModel), surface, agent.WithMaxTurns(flagMaxTurns))

	traj := loop.Run(cmd.Context(), args[0])

	fmt.Printf("state: %s (%d turns)\n", traj.State, traj.Turns)
	if traj.State == agent.StateError {
		return fmt.Errorf("episode failed: %s", traj.FailureDetail)
	}
	if traj.FinalAnswer == nil {
		fmt.Println("no answer produced")
		return nil
	}

	fmt.Printf("\n%s\n", traj.FinalAnswer.Candidate())
	if len(traj.FinalAnswer.Functions) > 0 {
		fmt.Printf("\ncited functions: %s\n", strings.Join(traj.FinalAnswer.Functions, ", "))
	}

	data, err := json.MarshalIndent(traj.FinalAnswer, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("\nraw answer:\n%s\n", data)
	return nil
}
