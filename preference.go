// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import (
	"cmp"
	"slices"

	"github.com/someonegg/foodmatch/geo"
)

// UpdatePreferences rewrites the working preference lists of the pool's
// receivers and donors from geometric and chronological eligibility.
//
// A donor is eligible for a receiver when the receiver lies within the
// donor's claimed vicinity and the donor's window closes first. A donor
// additionally requires the receiver to lie close to its volunteer's route.
func UpdatePreferences(reg *Registry, cfg Config, pool Pool, as *Assignments) error {
	donors, err := resolve(reg, phasePreference, pool.Donors)
	if err != nil {
		return err
	}
	receivers, err := resolve(reg, phasePreference, pool.Receivers)
	if err != nil {
		return err
	}

	for _, r := range receivers {
		eligible := make(map[int]*Agent)
		for _, d := range donors {
			if geo.Distance(d.Start, r.Start) <= d.Vicinity && cfg.precedes(d, r) {
				eligible[d.ID] = d
			}
		}
		r.Working = mergePreference(cfg.Preference, r.Working, eligible, func(a *Agent) float64 {
			return a.StartTime
		})
	}

	for _, d := range donors {
		var route geo.Route
		vid, served := as.Volunteer(d.ID)
		if served {
			v, err := reg.get(phasePreference, vid)
			if err != nil {
				return err
			}
			route = v.Route()
		}

		eligible := make(map[int]*Agent)
		for _, r := range receivers {
			if geo.Distance(d.Start, r.Start) > d.Vicinity {
				continue
			}
			// a donor without a volunteer has no route to leave
			if served && route.OffRoute(r.Start) > cfg.offRoutingLimit(route.Length()) {
				continue
			}
			if cfg.precedes(d, r) {
				eligible[r.ID] = r
			}
		}
		d.Working = mergePreference(cfg.Preference, d.Working, eligible, cfg.sortTime)
	}

	return nil
}

// mergePreference keeps the eligible part of stated in stated order and,
// unless the policy is PreferOriginal, appends the eligible but unstated
// counterparts ordered by (key, id).
func mergePreference(policy PreferencePolicy, stated []int, eligible map[int]*Agent,
	key func(*Agent) float64) []int {

	merged := make([]int, 0, len(eligible))
	listed := make(map[int]bool, len(stated))
	for _, id := range stated {
		listed[id] = true
		if _, ok := eligible[id]; ok {
			merged = append(merged, id)
		}
	}
	if policy == PreferOriginal {
		return merged
	}

	var extra []*Agent
	for id, a := range eligible {
		if !listed[id] {
			extra = append(extra, a)
		}
	}
	slices.SortFunc(extra, func(a, b *Agent) int {
		if c := cmp.Compare(key(a), key(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, a := range extra {
		merged = append(merged, a.ID)
	}
	return merged
}

func resolve(reg *Registry, phase string, ids []int) ([]*Agent, error) {
	agents := make([]*Agent, len(ids))
	for i, id := range ids {
		a, err := reg.get(phase, id)
		if err != nil {
			return nil, err
		}
		agents[i] = a
	}
	return agents, nil
}
