// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

// Batch is a snapshot of agent requests with the id lists of each cohort.
type Batch struct {
	Agents                 []Agent
	PerishableDonors       []int
	PerishableReceivers    []int
	NonPerishableDonors    []int
	NonPerishableReceivers []int
	Volunteers             []int
}

// Classify builds a batch, sorting agents into cohorts in input order.
func Classify(agents []Agent) Batch {
	b := Batch{Agents: agents}
	for i := range agents {
		a := &agents[i]
		switch a.Role {
		case Volunteer:
			b.Volunteers = append(b.Volunteers, a.ID)
		case Donor:
			if a.Food == Perishable {
				b.PerishableDonors = append(b.PerishableDonors, a.ID)
			} else {
				b.NonPerishableDonors = append(b.NonPerishableDonors, a.ID)
			}
		case Receiver:
			if a.Food == Perishable {
				b.PerishableReceivers = append(b.PerishableReceivers, a.ID)
			} else {
				b.NonPerishableReceivers = append(b.NonPerishableReceivers, a.ID)
			}
		}
	}
	return b
}

// Donors returns the donor ids of a food category.
func (b *Batch) Donors(food FoodType) []int {
	if food == Perishable {
		return b.PerishableDonors
	}
	return b.NonPerishableDonors
}

// Receivers returns the receiver ids of a food category.
func (b *Batch) Receivers(food FoodType) []int {
	if food == Perishable {
		return b.PerishableReceivers
	}
	return b.NonPerishableReceivers
}
