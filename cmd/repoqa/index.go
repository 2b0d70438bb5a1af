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
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-repoqa-go/index"
)

var (
	flagLanguages    []string
	flagOverwrite    bool
	flagStats        bool
	flagMinFunctions int
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [corpus.jsonl...]",
		Short: "Build the function index from corpus JSONL files",
		RunE:  runIndex,
	}
	cmd.Flags().StringSliceVar(&flagLanguages, "language", nil, "keep only these languages (default: all)")
	cmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "replace an existing index")
	cmd.Flags().BoolVar(&flagStats, "stats", false, "print per-repository function counts")
	cmd.Flags().IntVar(&flagMinFunctions, "min-functions", 100, "minimum function count for --stats listing")
	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !flagStats {
		return fmt.Errorf("nothing to do: pass corpus files to ingest or --stats")
	}

	if len(args) > 0 {
		if err := index.Build(cmd.Context(), flagDB, args, flagLanguages, flagOverwrite); err != nil {
			return err
		}
	}
	if flagStats {
		return printStats(cmd)
	}
	return nil
}

func printStats(cmd *cobra.Command) error {
	client, err := index.Open(flagDB)
	if err != nil {
		return err
	}
	defer client.Close()

	counts, err := client.ReposWithAtLeast(cmd.Context(), flagMinFunctions)
	if err != nil {
		return err
	}
	fmt.Printf("%d repositories with at least %d functions:\n", len(counts), flagMinFunctions)
	for _, rc := range counts {
		fmt.Printf("  %-60s %d\n", rc.Repo, rc.Count)

		paths, err := client.FunctionsByPath(cmd.Context(), rc.Repo, 10)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(paths))
		for path := range paths {
			names = append(names, path)
		}
		sort.Slice(names, func(i, j int) bool { return paths[names[i]] > paths[names[j]] })
		for i, path := range names {
			if i >= 3 {
				break
			}
			fmt.Printf("    %-58s %d\n", path, paths[path])
		}
	}
	return nil
}
