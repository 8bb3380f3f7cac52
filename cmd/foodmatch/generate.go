// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/codec"
	"github.com/someonegg/foodmatch/generate"
)

var generateCmd = &cli.Command{
	Name:    "generate",
	Usage:   "Generate a synthetic batch of agent requests",
	Aliases: []string{"g"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Required: true,
			Usage:    "specify the output agents.jsonl.zst",
		},
		&cli.IntFlag{
			Name:  "agents",
			Value: generate.DefaultAgents,
			Usage: "specify the number of agents",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "specify the random seed",
		},
		&cli.Float64Flag{
			Name:  "meal-size",
			Value: foodmatch.DefaultMealSize,
			Usage: "specify the amount of one donation (kg)",
		},
	},
	Action: func(ctx *cli.Context) error {
		var (
			out      = ctx.String("out")
			n        = ctx.Int("agents")
			seed     = ctx.Uint64("seed")
			mealSize = ctx.Float64("meal-size")
		)
		if n <= 0 {
			return errors.New("invalid agents")
		}
		if mealSize <= 0 {
			return errors.New("invalid meal-size")
		}
		return doGenerate(out, generate.Options{Agents: n, Seed: seed, MealSize: mealSize})
	},
}

func doGenerate(out string, opts generate.Options) error {
	agents := generate.Agents(opts)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := codec.WriteAgents(f, agents); err != nil {
		_ = f.Close()
		return fmt.Errorf("write agents file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	b := foodmatch.Classify(agents)
	fmt.Printf("%d agents: %d+%d donors, %d+%d receivers, %d volunteers\n", len(agents),
		len(b.PerishableDonors), len(b.NonPerishableDonors),
		len(b.PerishableReceivers), len(b.NonPerishableReceivers), len(b.Volunteers))
	return nil
}
