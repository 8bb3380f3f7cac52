// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import (
	"cmp"
	"slices"
)

type greedyMatcher struct {
	cfg Config
}

// GreedyMatcher runs volunteer assignment, preference recomputation and the
// greedy donor–receiver pairing over one food category.
//
// Receivers are served in chronological order. Each takes, among the pending
// donors it lists, the one that ranks it best; ties go to the receiver's own
// order. A claimed donor is never released, so the result is not a stable
// matching.
func GreedyMatcher(cfg Config) Matcher {
	return greedyMatcher{cfg}
}

func (m greedyMatcher) Match(reg *Registry, pool Pool) (Outcome, error) {
	pool = Pool{
		Food:       pool.Food,
		Donors:     slices.Clone(pool.Donors),
		Receivers:  slices.Clone(pool.Receivers),
		Volunteers: slices.Clone(pool.Volunteers),
	}

	as, err := AssignVolunteers(reg, m.cfg, &pool)
	if err != nil {
		return Outcome{}, err
	}
	if err := UpdatePreferences(reg, m.cfg, pool, as); err != nil {
		return Outcome{}, err
	}
	return m.pair(reg, pool, as)
}

func (m greedyMatcher) pair(reg *Registry, pool Pool, as *Assignments) (Outcome, error) {
	receivers, err := resolve(reg, phaseMatch, pool.Receivers)
	if err != nil {
		return Outcome{}, err
	}
	slices.SortStableFunc(receivers, func(a, b *Agent) int {
		if c := cmp.Compare(m.cfg.sortTime(a), m.cfg.sortTime(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	pending := make(map[int]bool, len(pool.Donors))
	for _, id := range pool.Donors {
		pending[id] = true
	}
	inPool := make(map[int]bool, len(pool.Receivers))
	for _, id := range pool.Receivers {
		inPool[id] = true
	}
	matched := make(map[int]bool)

	for _, r := range receivers {
		best, bestRank, found := 0, 0, false
		for _, did := range r.Working {
			if !pending[did] {
				continue
			}
			d, err := reg.get(phaseMatch, did)
			if err != nil {
				return Outcome{}, err
			}
			rank := slices.Index(d.Working, r.ID)
			if rank < 0 {
				continue
			}
			if !found || rank < bestRank {
				best, bestRank, found = did, rank, true
			}
		}
		if !found {
			continue
		}

		if prev, ok := as.get(best); ok && prev.HasVolunteer() {
			as.set(NewComplete(best, prev.Volunteer, r.ID))
		} else {
			// TODO: confirm with product whether a donor paired here should
			// be offered a volunteer after the fact.
			as.set(NewDirect(best, r.ID))
		}
		delete(pending, best)
		matched[r.ID] = true
	}

	out := Outcome{Food: pool.Food, Volunteers: pool.Volunteers}
	for _, match := range as.matches {
		if match.HasReceiver() && inPool[match.Receiver] {
			out.Matches = append(out.Matches, match)
		}
	}
	for _, id := range pool.Donors {
		if pending[id] {
			out.UnmatchedDonors = append(out.UnmatchedDonors, id)
		}
	}
	for _, id := range pool.Receivers {
		if !matched[id] {
			out.UnmatchedReceivers = append(out.UnmatchedReceivers, id)
		}
	}
	return out, nil
}
