// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/someonegg/foodmatch/internal/store"
)

var runsCmd = &cli.Command{
	Name:  "runs",
	Usage: "List stored runs",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Required: true,
			Usage:    "specify the run store (sqlite path or postgres:// dsn)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: 20,
			Usage: "specify the number of runs to list",
		},
	},
	Action: func(ctx *cli.Context) error {
		return doRuns(ctx.Context, ctx.String("db"), ctx.Int("limit"))
	},
}

func doRuns(ctx context.Context, dsn string, limit int) error {
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	runs, err := db.Runs(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tAGENTS\tMATCHED\tMANIPULATED")
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%d\n", r.ID, humanize.Time(r.CreatedAt),
			humanize.Comma(int64(s.Agents())), s.Matched(), s.Manipulated)
	}
	return tw.Flush()
}
