// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/codec"
	"github.com/someonegg/foodmatch/internal/archive"
	"github.com/someonegg/foodmatch/internal/config"
	"github.com/someonegg/foodmatch/internal/metrics"
	"github.com/someonegg/foodmatch/internal/store"
	"github.com/someonegg/foodmatch/simulation"
)

var matchCmd = &cli.Command{
	Name:    "match",
	Usage:   "Match a batch of agent requests",
	Aliases: []string{"m"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "agents",
			Required: true,
			Usage:    "specify the input agents.jsonl.zst",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "specify the run config (yaml)",
		},
		&cli.StringFlag{
			Name:  "preference",
			Usage: "specify the preference policy (original, eligible, updated)",
		},
		&cli.StringFlag{
			Name:  "sorting",
			Usage: "specify the receiver sorting (start, end)",
		},
		&cli.StringFlag{
			Name:  "volunteers",
			Usage: "specify the volunteer availability (1X-32X)",
		},
		&cli.BoolFlag{
			Name:  "parallel",
			Usage: "match the two food categories concurrently",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "specify the random seed",
		},
		&cli.StringFlag{
			Name:  "previous",
			Usage: "specify earlier matches.jsonl.zst and reverse the preferences of some of their agents",
		},
		&cli.StringFlag{
			Name:  "previous-run",
			Usage: "like previous, with a stored run id or \"latest\"",
		},
		&cli.StringFlag{
			Name:  "matches",
			Usage: "specify the output matches.jsonl.zst",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "specify the run store (sqlite path or postgres:// dsn)",
		},
		&cli.StringFlag{
			Name:  "archive",
			Usage: "specify the archive target (directory or s3://bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "specify the prometheus textfile output",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
		},
	},
	Action: func(ctx *cli.Context) error {
		var (
			agentsFile  = ctx.String("agents")
			configFile  = ctx.String("config")
			previous    = ctx.String("previous")
			previousRun = ctx.String("previous-run")
		)
		if previous != "" && previousRun != "" {
			return errors.New("previous and previous-run are exclusive")
		}

		file := config.File{}
		if configFile != "" {
			var err error
			if file, err = config.Load(configFile); err != nil {
				return fmt.Errorf("load config file failed: %w", err)
			}
		}
		override(ctx, &file)

		return doMatch(ctx.Context, file, agentsFile, previous, previousRun,
			ctx.String("matches"), ctx.Bool("verbose"))
	},
}

// override applies the flags that were set on top of the config file.
func override(ctx *cli.Context, f *config.File) {
	str := func(name string, dst **string) {
		if ctx.IsSet(name) {
			v := ctx.String(name)
			*dst = &v
		}
	}
	str("preference", &f.Preference)
	str("sorting", &f.Sorting)
	str("volunteers", &f.Volunteers)
	if ctx.IsSet("parallel") {
		v := ctx.Bool("parallel")
		f.Parallel = &v
	}
	if ctx.IsSet("seed") {
		v := ctx.Uint64("seed")
		f.Seed = &v
	}
	if ctx.IsSet("db") {
		f.Store = ctx.String("db")
	}
	if ctx.IsSet("archive") {
		f.Archive = ctx.String("archive")
	}
	if ctx.IsSet("metrics-textfile") {
		f.MetricsTextfile = ctx.String("metrics-textfile")
	}
}

// settings is what the run store keeps next to a run.
type settings struct {
	Config       foodmatch.Config        `json:"config"`
	Availability simulation.Availability `json:"availability"`
	Parallel     bool                    `json:"parallel"`
	Seed         *uint64                 `json:"seed,omitempty"`
	AgentsFile   string                  `json:"agents_file"`
	Manipulated  []int                   `json:"manipulated,omitempty"`
}

func doMatch(ctx context.Context, file config.File, agentsFile, previous, previousRun,
	matchesFile string, verbose bool) error {

	runner, err := file.Runner()
	if err != nil {
		return err
	}
	runner.Logger = log.New(os.Stderr, "[foodmatch] ", log.LstdFlags|log.Lmicroseconds)
	runner.Verbose = verbose

	var rec *metrics.Recorder
	if file.MetricsTextfile != "" {
		rec = metrics.New()
		runner.Recorder = rec
	}

	agents, err := readAgents(agentsFile)
	if err != nil {
		return fmt.Errorf("load agents file failed: %w", err)
	}
	batch := foodmatch.Classify(agents)

	var db *store.Store
	if file.Store != "" {
		if db, err = store.Open(ctx, file.Store); err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
	}

	var manip *simulation.Manipulation
	if previous != "" || previousRun != "" {
		prev, err := loadPrevious(ctx, db, agents, previous, previousRun)
		if err != nil {
			return fmt.Errorf("load previous matches failed: %w", err)
		}
		if manip, err = runner.SelectManipulation(batch, prev); err != nil {
			return err
		}
	}

	res, err := runner.Run(ctx, batch, manip)
	if err != nil {
		return err
	}
	if err := res.Summary.WriteReport(os.Stdout, manip != nil); err != nil {
		return err
	}

	runID := uuid.New()
	sett := settings{
		Config:       runner.Config,
		Availability: *runner.Availability,
		Parallel:     runner.Parallel,
		Seed:         runner.Seed,
		AgentsFile:   agentsFile,
	}
	if manip != nil {
		sett.Manipulated = manip.Agents
	}

	g, gctx := errgroup.WithContext(ctx)
	if matchesFile != "" {
		g.Go(func() error {
			return writeMatches(matchesFile, res.Matches)
		})
	}
	if db != nil {
		g.Go(func() error {
			if err := db.SaveRun(gctx, runID, sett, res); err != nil {
				return fmt.Errorf("save run failed: %w", err)
			}
			return nil
		})
	}
	if file.Archive != "" {
		g.Go(func() error {
			sink, err := archive.Open(gctx, file.Archive)
			if err != nil {
				return err
			}
			locs, err := archive.Save(gctx, sink, runID.String(), agents, res)
			if err != nil {
				return fmt.Errorf("archive run failed: %w", err)
			}
			runner.Logger.Printf("archived run %s: %v", runID, locs)
			return nil
		})
	}
	if rec != nil {
		g.Go(func() error {
			return rec.WriteTextfile(file.MetricsTextfile)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if db != nil || file.Archive != "" {
		fmt.Printf("\nRUN: %s\n", runID)
	}
	return nil
}

func loadPrevious(ctx context.Context, db *store.Store, agents []foodmatch.Agent,
	previous, previousRun string) ([]foodmatch.Match, error) {

	reg, err := foodmatch.NewRegistry(agents)
	if err != nil {
		return nil, err
	}

	if previous != "" {
		f, err := os.Open(previous)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return codec.ReadMatches(f, reg)
	}

	if db == nil {
		return nil, errors.New("previous-run needs a run store")
	}
	var id uuid.UUID
	if previousRun == "latest" {
		run, err := db.Latest(ctx)
		if err != nil {
			return nil, err
		}
		id = run.ID
	} else if id, err = uuid.Parse(previousRun); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", previousRun, err)
	}

	matches, err := db.LoadMatches(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if err := reg.CheckMatch(m); err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
	}
	return matches, nil
}

func readAgents(file string) ([]foodmatch.Agent, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return codec.ReadAgents(f)
}

func writeMatches(file string, matches []foodmatch.Match) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := codec.WriteMatches(f, matches); err != nil {
		_ = f.Close()
		return fmt.Errorf("write matches file failed: %w", err)
	}
	return f.Close()
}
