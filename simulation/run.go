// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/someonegg/foodmatch"
)

var ErrNothingToManipulate = errors.New("no agent of the batch appears in the previous matches")

func (r *Runner) init() error {
	if r.Availability == nil {
		r.avail = DefaultAvailability
	} else {
		r.avail = *r.Availability
	}
	if err := r.avail.Validate(); err != nil {
		return err
	}

	if err := r.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if r.rng == nil {
		seed := uint64(DefaultSeed)
		if r.Seed != nil {
			seed = *r.Seed
		}
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return nil
}

func (r *Runner) logf(format string, v ...any) {
	if r.Verbose && r.Logger != nil {
		r.Logger.Printf(format, v...)
	}
}

func (r *Runner) observe(ctx context.Context, op string, success bool, d time.Duration) {
	if r.Recorder != nil {
		r.Recorder.Observe(ctx, op, success, d)
	}
}

// Run matches the batch. When manip is not nil its agents work with reversed
// preference lists and the result carries the manipulation report.
func (r *Runner) Run(ctx context.Context, batch foodmatch.Batch, manip *Manipulation) (res *Result, err error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		r.observe(ctx, "run", err == nil, time.Since(start))
		if err == nil && r.Recorder != nil {
			r.Recorder.ObserveResult(ctx, res)
		}
	}()

	reg, err := foodmatch.NewRegistry(batch.Agents)
	if err != nil {
		return nil, err
	}
	manipulated := make(map[int]bool)
	if manip != nil {
		for _, id := range manip.Agents {
			if _, ok := reg.Lookup(id); !ok {
				return nil, &foodmatch.LookupError{Phase: "manipulation setup", ID: id}
			}
			manipulated[id] = true
		}
	}
	reg.Reset(manipulated)

	volunteers := r.sampleVolunteers(batch.Volunteers)

	summ := Summary{
		PerishableDonors:       len(batch.PerishableDonors),
		NonPerishableDonors:    len(batch.NonPerishableDonors),
		PerishableReceivers:    len(batch.PerishableReceivers),
		NonPerishableReceivers: len(batch.NonPerishableReceivers),
		Volunteers:             len(volunteers),
		Availability:           r.avail,
	}
	r.logf("perishable donors: %v, non-perishable donors: %v, perishable receivers: %v, "+
		"non-perishable receivers: %v, volunteers: %v (%v)",
		summ.PerishableDonors, summ.NonPerishableDonors, summ.PerishableReceivers,
		summ.NonPerishableReceivers, summ.Volunteers, r.avail)

	pools := [2]foodmatch.Pool{
		{
			Food:      foodmatch.Perishable,
			Donors:    batch.PerishableDonors,
			Receivers: batch.PerishableReceivers,
		},
		{
			Food:      foodmatch.NonPerishable,
			Donors:    batch.NonPerishableDonors,
			Receivers: batch.NonPerishableReceivers,
		},
	}
	matcher := foodmatch.GreedyMatcher(r.Config)

	var outs [2]foodmatch.Outcome
	res = &Result{Registry: reg}

	if r.Parallel {
		pools[0].Volunteers, pools[1].Volunteers = partitionVolunteers(volunteers,
			len(pools[0].Donors), len(pools[1].Donors))

		g, gctx := errgroup.WithContext(ctx)
		for i := range pools {
			g.Go(func() error {
				out, err := r.matchPool(gctx, matcher, reg, pools[i])
				outs[i] = out
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		res.Volunteers = append(slices.Clone(outs[0].Volunteers), outs[1].Volunteers...)
	} else {
		pools[0].Volunteers = volunteers
		if outs[0], err = r.matchPool(ctx, matcher, reg, pools[0]); err != nil {
			return nil, err
		}
		pools[1].Volunteers = outs[0].Volunteers
		if outs[1], err = r.matchPool(ctx, matcher, reg, pools[1]); err != nil {
			return nil, err
		}
		res.Volunteers = outs[1].Volunteers
	}

	res.Perishable, res.NonPerishable = outs[0], outs[1]
	res.Matches = append(slices.Clone(outs[0].Matches), outs[1].Matches...)
	summ.PerishableMatched = len(outs[0].Matches)
	summ.NonPerishableMatched = len(outs[1].Matches)

	if manip != nil {
		current := involving(res.Matches, manipulated)
		report, err := foodmatch.AnalyzeManipulation(reg, manip.Agents, manip.Previous, current)
		if err != nil {
			return nil, err
		}
		res.Manipulation = &report
		summ.Manipulated = report.Total
		summ.Better, summ.Worse = report.Better, report.Worse
		summ.Same, summ.Uncomparable = report.Same, report.Uncomparable
		r.logf("manipulated: %v, better: %v, worse: %v, same: %v, uncomparable: %v",
			report.Total, report.Better, report.Worse, report.Same, report.Uncomparable)
	}

	res.Summary = summ
	return res, nil
}

func (r *Runner) matchPool(ctx context.Context, matcher foodmatch.Matcher,
	reg *foodmatch.Registry, pool foodmatch.Pool) (foodmatch.Outcome, error) {

	op := "match_" + category(pool.Food)
	start := time.Now()
	out, err := matcher.Match(reg, pool)
	r.observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		return out, fmt.Errorf("%s food: %w", category(pool.Food), err)
	}
	r.logf("%s: matched %v of %v donors, %v receivers unmatched, %v volunteers left",
		category(pool.Food), len(out.Matches), len(pool.Donors),
		len(out.UnmatchedReceivers), len(out.Volunteers))
	return out, nil
}

// sampleVolunteers keeps the availability's share of volunteers, in random
// order. Keeping all of them keeps their order.
func (r *Runner) sampleVolunteers(ids []int) []int {
	k := int(float64(len(ids)) * r.avail.Fraction())
	if k >= len(ids) {
		return slices.Clone(ids)
	}
	sample := make([]int, k)
	for i, j := range r.rng.Perm(len(ids))[:k] {
		sample[i] = ids[j]
	}
	return sample
}

// partitionVolunteers splits volunteers between the categories in proportion
// to their donors.
func partitionVolunteers(ids []int, perishable, nonPerishable int) ([]int, []int) {
	k := len(ids) / 2
	if total := perishable + nonPerishable; total > 0 {
		k = int(math.Round(float64(len(ids)) * float64(perishable) / float64(total)))
	}
	return slices.Clone(ids[:k]), slices.Clone(ids[k:])
}

// SelectManipulation picks a random, non-empty subset of the batch's donors
// and receivers that appear in previous, short of all of them when possible,
// and keeps the previous matches involving them.
func (r *Runner) SelectManipulation(batch foodmatch.Batch, previous []foodmatch.Match) (*Manipulation, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for _, m := range previous {
		for _, id := range m.Tuple() {
			seen[id] = true
		}
	}
	var common []int
	for _, ids := range [][]int{batch.PerishableDonors, batch.PerishableReceivers,
		batch.NonPerishableDonors, batch.NonPerishableReceivers} {
		for _, id := range ids {
			if seen[id] {
				common = append(common, id)
			}
		}
	}
	if len(common) == 0 {
		return nil, ErrNothingToManipulate
	}

	k := len(common)
	if k > 1 {
		k = 1 + r.rng.IntN(k-1)
	}
	agents := make([]int, k)
	for i, j := range r.rng.Perm(len(common))[:k] {
		agents[i] = common[j]
	}

	chosen := make(map[int]bool, k)
	for _, id := range agents {
		chosen[id] = true
	}
	return &Manipulation{Agents: agents, Previous: involving(previous, chosen)}, nil
}

// involving returns the distinct matches touching any id in ids.
func involving(matches []foodmatch.Match, ids map[int]bool) []foodmatch.Match {
	var out []foodmatch.Match
	dup := make(map[foodmatch.Match]bool)
	for _, m := range matches {
		if dup[m] {
			continue
		}
		for _, id := range m.Tuple() {
			if ids[id] {
				out = append(out, m)
				dup[m] = true
				break
			}
		}
	}
	return out
}

func category(food foodmatch.FoodType) string {
	if food == foodmatch.Perishable {
		return "perishable"
	}
	return "non_perishable"
}
