// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import (
	"slices"

	"github.com/someonegg/foodmatch/geo"
)

// Assignments are the provisional donor–volunteer matches, at most one per donor.
type Assignments struct {
	matches []Match
	byDonor map[int]int
}

func newAssignments() *Assignments {
	return &Assignments{byDonor: make(map[int]int)}
}

func (as *Assignments) set(m Match) {
	if i, ok := as.byDonor[m.Donor]; ok {
		as.matches[i] = m
		return
	}
	as.byDonor[m.Donor] = len(as.matches)
	as.matches = append(as.matches, m)
}

func (as *Assignments) get(donor int) (Match, bool) {
	i, ok := as.byDonor[donor]
	if !ok {
		return Match{}, false
	}
	return as.matches[i], true
}

// Volunteer returns the volunteer assigned to donor.
func (as *Assignments) Volunteer(donor int) (int, bool) {
	m, ok := as.get(donor)
	if !ok || !m.HasVolunteer() {
		return 0, false
	}
	return m.Volunteer, true
}

// Matches returns the assignments in the order donors were first served.
func (as *Assignments) Matches() []Match {
	return slices.Clone(as.matches)
}

func (as *Assignments) Len() int {
	return len(as.matches)
}

// AssignVolunteers gives every pending donor of the pool the qualifying
// volunteer with the widest serviceable vicinity, and claims that vicinity
// for the donor. Donors nobody can serve get the food-type default.
//
// A served volunteer gives up one meal of capacity, or leaves the pool once
// less than two meals remain.
func AssignVolunteers(reg *Registry, cfg Config, pool *Pool) (*Assignments, error) {
	as := newAssignments()

	for _, did := range pool.Donors {
		donor, err := reg.get(phaseVolunteer, did)
		if err != nil {
			return nil, err
		}

		winner := (*Agent)(nil)
		for _, vid := range pool.Volunteers {
			v, err := reg.get(phaseVolunteer, vid)
			if err != nil {
				return nil, err
			}
			if !qualifies(cfg, donor, v) {
				continue
			}
			reach := cfg.Reach(pool.Food, v)
			if reach > donor.Vicinity {
				donor.Vicinity = reach
				as.set(NewVolunteerOnly(did, vid))
				winner = v
			}
		}

		if winner == nil {
			if reach := cfg.DefaultReach(pool.Food); reach > donor.Vicinity {
				donor.Vicinity = reach
			}
			continue
		}

		if winner.Remaining < 2*cfg.MealSize {
			pool.Volunteers = slices.DeleteFunc(pool.Volunteers, func(id int) bool {
				return id == winner.ID
			})
		} else {
			winner.Remaining -= cfg.MealSize
		}
	}

	return as, nil
}

// qualifies checks capacity, detour, time overlap and the volunteer's stated
// preference, cheapest first.
func qualifies(cfg Config, d, v *Agent) bool {
	if v.Remaining < (1+cfg.ExtraPayload/100)*d.Amount {
		return false
	}
	if geo.Distance(d.Start, v.Start) > cfg.offRoutingLimit(v.Route().Length()) {
		return false
	}
	if !(d.StartTime < v.EndTime && v.StartTime < d.EndTime) {
		return false
	}
	if v.EndTime-d.StartTime < cfg.OverlapTime && d.EndTime-v.StartTime < cfg.OverlapTime {
		return false
	}
	return len(v.Working) == 0 || slices.Contains(v.Working, d.ID)
}
