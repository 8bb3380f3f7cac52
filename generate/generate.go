// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package generate creates synthetic batches of agent requests.
package generate

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/geo"
)

const (
	DefaultAgents        = 5000
	DefaultCoordinateMax = 50  // km
	DefaultDayMax        = 18  // hours
	DefaultPayloadMax    = 100 // kg
)

// role weights, donors : receivers : volunteers
const (
	donorWeight     = 2
	receiverWeight  = 2
	volunteerWeight = 64
)

type Options struct {
	Agents        int
	CoordinateMax int
	DayMax        int
	PayloadMax    int
	MealSize      float64
	Seed          uint64
}

func (o *Options) init() {
	if o.Agents <= 0 {
		o.Agents = DefaultAgents
	}
	if o.CoordinateMax <= 0 {
		o.CoordinateMax = DefaultCoordinateMax
	}
	if o.DayMax <= 0 {
		o.DayMax = DefaultDayMax
	}
	if o.PayloadMax <= 0 {
		o.PayloadMax = DefaultPayloadMax
	}
	if o.MealSize <= 0 {
		o.MealSize = foodmatch.DefaultMealSize
	}
}

// Batch generates agents with ids 0..n-1 and classifies them.
func Batch(opts Options) foodmatch.Batch {
	return foodmatch.Classify(Agents(opts))
}

// Agents generates agent requests. The same options always yield the same
// agents.
//
// Volunteers state long preference lists, receivers fairly long ones and
// donors short ones.
func Agents(opts Options) []foodmatch.Agent {
	opts.init()
	n := opts.Agents
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5851f42d4c957f2d))

	volunteerLen := cumulative(n, func(i int) float64 { return float64(i + 1) })
	receiverLen := cumulative(n, func(i int) float64 { return math.Pow(0.9999, float64(i+1)) })
	donorLen := cumulative(n, func(i int) float64 { return math.Pow(0.9, float64(i+1)) })

	point := func() geo.Point {
		return geo.Point{
			X: float64(rng.IntN(opts.CoordinateMax + 1)),
			Y: float64(rng.IntN(opts.CoordinateMax + 1)),
		}
	}
	food := func() foodmatch.FoodType {
		if rng.IntN(2) == 0 {
			return foodmatch.Perishable
		}
		return foodmatch.NonPerishable
	}

	agents := make([]foodmatch.Agent, n)
	for i := range agents {
		a := &agents[i]
		a.ID = i
		a.Role = pickRole(rng)
		a.Start = point()
		start := rng.IntN(opts.DayMax)
		a.StartTime = float64(start)
		a.EndTime = float64(start + rng.IntN(opts.DayMax-start+1))

		switch a.Role {
		case foodmatch.Volunteer:
			a.End = point()
			a.Climate = rng.IntN(2) == 0
			a.Motorized = rng.IntN(2) == 0
			a.Amount = float64(1 + rng.IntN(opts.PayloadMax))
			a.Pref = sample(rng, n, pick(rng, volunteerLen))
		case foodmatch.Receiver:
			a.End = geo.Point{X: -1, Y: -1}
			a.Food = food()
			a.Amount = opts.MealSize
			a.Pref = sample(rng, n, pick(rng, receiverLen))
		default:
			a.End = geo.Point{X: -1, Y: -1}
			a.Food = food()
			a.Amount = opts.MealSize
			a.Pref = sample(rng, n, pick(rng, donorLen))
		}
	}
	return agents
}

func pickRole(rng *rand.Rand) foodmatch.Role {
	x := rng.IntN(donorWeight + receiverWeight + volunteerWeight)
	switch {
	case x < donorWeight:
		return foodmatch.Donor
	case x < donorWeight+receiverWeight:
		return foodmatch.Receiver
	}
	return foodmatch.Volunteer
}

// cumulative returns the running sums of weight(0..n-1).
func cumulative(n int, weight func(int) float64) []float64 {
	sums := make([]float64, n)
	total := 0.0
	for i := range sums {
		total += weight(i)
		sums[i] = total
	}
	return sums
}

// pick draws an index with probability proportional to its weight.
func pick(rng *rand.Rand, sums []float64) int {
	if len(sums) == 0 {
		return 0
	}
	x := rng.Float64() * sums[len(sums)-1]
	i := sort.SearchFloat64s(sums, x)
	if i >= len(sums) {
		i = len(sums) - 1
	}
	return i
}

// sample returns k distinct ids from [0, n) in random order.
func sample(rng *rand.Rand, n, k int) []int {
	ids := make([]int, 0, k)
	for _, id := range rng.Perm(n)[:k] {
		ids = append(ids, id)
	}
	return ids
}
