// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import "fmt"

const (
	phaseVolunteer  = "volunteer assignment"
	phasePreference = "preference recomputation"
	phaseMatch      = "donor-receiver matching"
	phaseAnalysis   = "manipulation analysis"
	phaseDecode     = "match decoding"
)

// Registry is the agent arena of one batch run, indexed by agent id.
//
// Agents are addressed by pointer into the arena. Each matching phase writes
// only the fields it owns: volunteer assignment the donor vicinities and
// volunteer capacities, preference recomputation the working lists.
type Registry struct {
	agents []Agent
	index  map[int]int
}

// NewRegistry copies agents into a new arena with their matching state reset.
func NewRegistry(agents []Agent) (*Registry, error) {
	r := &Registry{
		agents: make([]Agent, len(agents)),
		index:  make(map[int]int, len(agents)),
	}
	for i := range agents {
		a := agents[i]
		if _, ok := r.index[a.ID]; ok {
			return nil, fmt.Errorf("agent %d: %w", a.ID, ErrDuplicateAgent)
		}
		a.Pref = append([]int(nil), a.Pref...)
		r.agents[i] = a
		r.index[a.ID] = i
	}
	r.Reset(nil)
	return r, nil
}

func (r *Registry) Len() int {
	return len(r.agents)
}

// Lookup returns the agent with id, if any.
func (r *Registry) Lookup(id int) (*Agent, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return &r.agents[i], true
}

func (r *Registry) get(phase string, id int) (*Agent, error) {
	a, ok := r.Lookup(id)
	if !ok {
		return nil, &LookupError{Phase: phase, ID: id}
	}
	return a, nil
}

// Reset restores the matching state of every agent; ids in manipulated get
// reversed working preference lists.
func (r *Registry) Reset(manipulated map[int]bool) {
	for i := range r.agents {
		r.agents[i].Reset(manipulated[r.agents[i].ID])
	}
}

// Agents returns the arena in input order. The slice is shared.
func (r *Registry) Agents() []Agent {
	return r.agents
}

// ResolveTuple rebuilds a match from its persisted tuple shape. Pairs are
// disambiguated by the role of the second agent. Every id must be known and
// sit in the position its role allows.
func (r *Registry) ResolveTuple(ids []int) (Match, error) {
	if len(ids) != 2 && len(ids) != 3 {
		return Match{}, fmt.Errorf("match %v: want 2 or 3 ids", ids)
	}
	agents := make([]*Agent, len(ids))
	for i, id := range ids {
		a, err := r.get(phaseDecode, id)
		if err != nil {
			return Match{}, err
		}
		agents[i] = a
	}

	want := func(i int, role Role) error {
		if agents[i].Role != role {
			return fmt.Errorf("match %v: agent %d is a %v, want %v", ids, ids[i], agents[i].Role, role)
		}
		return nil
	}
	if err := want(0, Donor); err != nil {
		return Match{}, err
	}

	if len(ids) == 3 {
		if err := want(1, Volunteer); err != nil {
			return Match{}, err
		}
		if err := want(2, Receiver); err != nil {
			return Match{}, err
		}
		return NewComplete(ids[0], ids[1], ids[2]), nil
	}
	switch agents[1].Role {
	case Volunteer:
		return NewVolunteerOnly(ids[0], ids[1]), nil
	case Receiver:
		return NewDirect(ids[0], ids[1]), nil
	}
	return Match{}, fmt.Errorf("match %v: agent %d is a %v", ids, ids[1], agents[1].Role)
}

// CheckMatch verifies a match loaded without its tuple shape against the
// registry.
func (r *Registry) CheckMatch(m Match) error {
	got, err := r.ResolveTuple(m.Tuple())
	if err != nil {
		return err
	}
	if got != m {
		return fmt.Errorf("match %v: stored as %v, resolves to %v", m, m.Kind, got.Kind)
	}
	return nil
}
