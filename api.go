// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package foodmatch provides the matching engine that redistributes surplus
// food from donors to receivers through volunteer transporters.
package foodmatch

import (
	"fmt"

	"github.com/someonegg/foodmatch/geo"
)

type Role int8

const (
	Donor Role = iota + 1
	Receiver
	Volunteer
)

func (r Role) String() string {
	switch r {
	case Donor:
		return "D"
	case Receiver:
		return "R"
	case Volunteer:
		return "V"
	}
	return "?"
}

func (r Role) MarshalText() ([]byte, error) {
	if r < Donor || r > Volunteer {
		return nil, fmt.Errorf("invalid role %d", r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "D":
		*r = Donor
	case "R":
		*r = Receiver
	case "V":
		*r = Volunteer
	default:
		return fmt.Errorf("invalid role %q", b)
	}
	return nil
}

type FoodType int8

const (
	NoFood FoodType = iota // volunteers
	Perishable
	NonPerishable
)

func (f FoodType) String() string {
	switch f {
	case Perishable:
		return "P"
	case NonPerishable:
		return "NP"
	}
	return ""
}

func (f FoodType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FoodType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*f = NoFood
	case "P":
		*f = Perishable
	case "NP":
		*f = NonPerishable
	default:
		return fmt.Errorf("invalid food type %q", b)
	}
	return nil
}

// Agent is a donor, receiver or volunteer request.
//
// The exported JSON fields are fixed for the whole run. The remaining fields
// are matching state, reset at the start of every run and rewritten only by
// the matching phases.
type Agent struct {
	ID        int       `json:"id"`
	Role      Role      `json:"role"`
	Food      FoodType  `json:"food"`
	Amount    float64   `json:"amount"` // kg
	Start     geo.Point `json:"start"`
	End       geo.Point `json:"end"` // volunteers only
	StartTime float64   `json:"start_t"`
	EndTime   float64   `json:"end_t"`
	Motorized bool      `json:"motorized"` // volunteers only
	Climate   bool      `json:"climate"`   // volunteers only
	Pref      []int     `json:"pref"`

	Working   []int   `json:"-"`
	Vicinity  float64 `json:"-"` // donors only, -1 when unset
	Remaining float64 `json:"-"` // volunteers only
}

// Route is the volunteer's straight travel path.
func (a *Agent) Route() geo.Route {
	return geo.Route{From: a.Start, To: a.End}
}

// Reset restores the matching state. A manipulated agent works with the
// reverse of its original preference list.
func (a *Agent) Reset(manipulated bool) {
	a.Working = make([]int, len(a.Pref))
	if manipulated {
		for i, id := range a.Pref {
			a.Working[len(a.Pref)-1-i] = id
		}
	} else {
		copy(a.Working, a.Pref)
	}
	a.Vicinity = -1
	a.Remaining = a.Amount
}

type MatchKind int8

const (
	// VolunteerOnly pairs a donor with its transport before a receiver is attached.
	VolunteerOnly MatchKind = iota + 1
	// Complete is a donor, volunteer and receiver.
	Complete
	// Direct pairs a donor and a receiver without a designated volunteer.
	Direct
)

func (k MatchKind) String() string {
	switch k {
	case VolunteerOnly:
		return "volunteer-only"
	case Complete:
		return "complete"
	case Direct:
		return "direct"
	}
	return "unknown"
}

// Match is one row of an allocation. Volunteer and Receiver are meaningful
// only when Kind says so.
type Match struct {
	Kind      MatchKind
	Donor     int
	Volunteer int
	Receiver  int
}

func NewVolunteerOnly(donor, volunteer int) Match {
	return Match{Kind: VolunteerOnly, Donor: donor, Volunteer: volunteer}
}

func NewComplete(donor, volunteer, receiver int) Match {
	return Match{Kind: Complete, Donor: donor, Volunteer: volunteer, Receiver: receiver}
}

func NewDirect(donor, receiver int) Match {
	return Match{Kind: Direct, Donor: donor, Receiver: receiver}
}

func (m Match) HasVolunteer() bool {
	return m.Kind == VolunteerOnly || m.Kind == Complete
}

func (m Match) HasReceiver() bool {
	return m.Kind == Complete || m.Kind == Direct
}

// Tuple returns the ids in their persisted tuple shape.
func (m Match) Tuple() []int {
	switch m.Kind {
	case VolunteerOnly:
		return []int{m.Donor, m.Volunteer}
	case Complete:
		return []int{m.Donor, m.Volunteer, m.Receiver}
	case Direct:
		return []int{m.Donor, m.Receiver}
	}
	return nil
}

// Counterpart returns the other end of the donor–receiver pairing for id.
func (m Match) Counterpart(id int) (int, bool) {
	if !m.HasReceiver() {
		return 0, false
	}
	switch id {
	case m.Donor:
		return m.Receiver, true
	case m.Receiver:
		return m.Donor, true
	}
	return 0, false
}

// Involves reports whether id is the donor or receiver of the match.
func (m Match) Involves(id int) bool {
	return m.Donor == id || m.HasReceiver() && m.Receiver == id
}

func (m Match) String() string {
	return fmt.Sprint(m.Tuple())
}

// Pool is the pending working set of one food category.
type Pool struct {
	Food       FoodType
	Donors     []int
	Receivers  []int
	Volunteers []int
}

// Outcome is the result of matching one pool.
type Outcome struct {
	Food               FoodType
	Matches            []Match
	UnmatchedDonors    []int
	UnmatchedReceivers []int
	Volunteers         []int // volunteers still available afterwards
}

type Matcher interface {
	Match(reg *Registry, pool Pool) (Outcome, error)
}
