// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package simulation runs foodmatch over a batch of agent requests, one food
// category at a time, and reports the outcome.
package simulation

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/someonegg/foodmatch"
)

// Availability is the number of volunteers generated per donor, from 1X to 32X.
type Availability int

const (
	DefaultAvailability Availability = 32
	DefaultSeed                      = 1
)

func ParseAvailability(s string) (Availability, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "X"))
	if err != nil {
		return 0, fmt.Errorf("invalid volunteer availability %q", s)
	}
	a := Availability(n)
	if err := a.Validate(); err != nil {
		return 0, err
	}
	return a, nil
}

func (a Availability) Validate() error {
	switch a {
	case 1, 2, 4, 8, 16, 32:
		return nil
	}
	return fmt.Errorf("invalid volunteer availability %dX, want one of 1X 2X 4X 8X 16X 32X", int(a))
}

// Fraction is the share of generated volunteers kept for a run.
func (a Availability) Fraction() float64 {
	return float64(a) / float64(DefaultAvailability)
}

func (a Availability) String() string {
	return strconv.Itoa(int(a)) + "X"
}

// Recorder observes runs. All methods must be safe for concurrent use.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	ObserveResult(ctx context.Context, res *Result)
}

type Runner struct {
	Config foodmatch.Config

	// Availability defaults to DefaultAvailability.
	Availability *Availability
	// Seed drives volunteer sampling and manipulation selection.
	Seed *uint64

	// When set, the two food categories run concurrently, each with its own
	// share of the volunteers. Otherwise they run in turn over one pool.
	Parallel bool

	Recorder Recorder // can be nil
	Logger   *log.Logger
	Verbose  bool

	avail Availability
	rng   *rand.Rand
}

// Manipulation lists the agents whose preferences were reversed, and the
// earlier matches they are judged against.
type Manipulation struct {
	Agents   []int
	Previous []foodmatch.Match
}

type Result struct {
	Registry      *foodmatch.Registry
	Perishable    foodmatch.Outcome
	NonPerishable foodmatch.Outcome

	// Matches of both categories, perishable first.
	Matches []foodmatch.Match
	// Volunteers still available after both categories ran.
	Volunteers []int

	Summary      Summary
	Manipulation *foodmatch.ManipulationReport
}

type Summary struct {
	PerishableDonors       int          `json:"perishable_donors"`
	NonPerishableDonors    int          `json:"non_perishable_donors"`
	PerishableReceivers    int          `json:"perishable_receivers"`
	NonPerishableReceivers int          `json:"non_perishable_receivers"`
	Volunteers             int          `json:"volunteers"`
	Availability           Availability `json:"availability"`

	PerishableMatched    int `json:"perishable_matched"`
	NonPerishableMatched int `json:"non_perishable_matched"`

	Manipulated  int `json:"manipulated,omitempty"`
	Better       int `json:"better,omitempty"`
	Worse        int `json:"worse,omitempty"`
	Same         int `json:"same,omitempty"`
	Uncomparable int `json:"uncomparable,omitempty"`
}
