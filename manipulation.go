// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import "slices"

// Effect classifies what a preference manipulation did to an agent.
type Effect int8

const (
	Same Effect = iota
	Better
	Worse
	Uncomparable
)

func (e Effect) String() string {
	switch e {
	case Same:
		return "same"
	case Better:
		return "better"
	case Worse:
		return "worse"
	case Uncomparable:
		return "uncomparable"
	}
	return "unknown"
}

type ManipulationReport struct {
	Total        int
	Better       int
	Worse        int
	Same         int
	Uncomparable int

	Effects map[int]Effect
}

func (r *ManipulationReport) add(id int, e Effect) {
	r.Total++
	switch e {
	case Same:
		r.Same++
	case Better:
		r.Better++
	case Worse:
		r.Worse++
	case Uncomparable:
		r.Uncomparable++
	}
	r.Effects[id] = e
}

// CounterpartIn returns the donor or receiver paired with id in matches.
func CounterpartIn(matches []Match, id int) (int, bool) {
	for _, m := range matches {
		if c, ok := m.Counterpart(id); ok {
			return c, true
		}
	}
	return 0, false
}

// CompareEffect judges an agent's current counterpart against its prior one
// by the agent's original, unmanipulated preference list.
func CompareEffect(agent *Agent, prior int, hadPrior bool, current int, hasCurrent bool) Effect {
	switch {
	case hadPrior == hasCurrent && (!hadPrior || prior == current):
		return Same
	case hadPrior && !hasCurrent:
		return Worse
	case !hadPrior:
		return Uncomparable
	}

	ip, ic := slices.Index(agent.Pref, prior), slices.Index(agent.Pref, current)
	if ip < 0 || ic < 0 {
		return Uncomparable
	}
	if ip < ic {
		return Worse
	}
	return Better
}

// AnalyzeManipulation classifies every manipulated agent by comparing its
// counterpart in previous with its counterpart in current.
func AnalyzeManipulation(reg *Registry, manipulated []int, previous, current []Match) (ManipulationReport, error) {
	report := ManipulationReport{Effects: make(map[int]Effect, len(manipulated))}
	for _, id := range manipulated {
		agent, err := reg.get(phaseAnalysis, id)
		if err != nil {
			return ManipulationReport{}, err
		}
		prior, hadPrior := CounterpartIn(previous, id)
		cur, hasCur := CounterpartIn(current, id)
		report.add(id, CompareEffect(agent, prior, hadPrior, cur, hasCur))
	}
	return report, nil
}
