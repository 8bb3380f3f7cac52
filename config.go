// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import (
	"errors"
	"fmt"
)

type PreferencePolicy string

const (
	// PreferOriginal keeps only the stated counterparts that are eligible.
	PreferOriginal PreferencePolicy = "original"
	// PreferEligible appends the eligible but unlisted counterparts.
	PreferEligible PreferencePolicy = "eligible"
	// PreferUpdated behaves as PreferEligible.
	PreferUpdated PreferencePolicy = "updated"
)

type SortPolicy string

const (
	SortByStart SortPolicy = "start"
	SortByEnd   SortPolicy = "end"
)

const (
	DefaultOverlapTime            = 0.25 // hours
	DefaultOffRouting             = 5    // percent
	DefaultMealSize               = 1    // kg
	DefaultExtraPayload           = 20   // percent
	DefaultPerishableMotorized    = 20   // km
	DefaultPerishableNonMotorized = 5    // km
	DefaultPerishableReach        = 5    // km
	DefaultNonPerishableReach     = 100  // km
)

// Config holds the thresholds and policies of a run. It is passed by value
// and never modified by the engine.
type Config struct {
	OverlapTime  float64
	OffRouting   float64
	MealSize     float64
	ExtraPayload float64

	PerishableMotorized    float64
	PerishableNonMotorized float64
	PerishableDefault      float64
	NonPerishableDefault   float64

	Preference PreferencePolicy
	Sorting    SortPolicy
}

func DefaultConfig() Config {
	return Config{
		OverlapTime:            DefaultOverlapTime,
		OffRouting:             DefaultOffRouting,
		MealSize:               DefaultMealSize,
		ExtraPayload:           DefaultExtraPayload,
		PerishableMotorized:    DefaultPerishableMotorized,
		PerishableNonMotorized: DefaultPerishableNonMotorized,
		PerishableDefault:      DefaultPerishableReach,
		NonPerishableDefault:   DefaultNonPerishableReach,
		Preference:             PreferEligible,
		Sorting:                SortByEnd,
	}
}

func (c Config) Validate() error {
	var errs []error
	check := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, v))
		}
	}
	check("overlap time", c.OverlapTime)
	check("off-routing threshold", c.OffRouting)
	check("extra payload threshold", c.ExtraPayload)
	check("perishable motorized distance", c.PerishableMotorized)
	check("perishable non-motorized distance", c.PerishableNonMotorized)
	check("perishable default distance", c.PerishableDefault)
	check("non-perishable default distance", c.NonPerishableDefault)
	if c.MealSize <= 0 {
		errs = append(errs, fmt.Errorf("meal size must be positive, got %v", c.MealSize))
	}
	switch c.Preference {
	case PreferOriginal, PreferEligible, PreferUpdated:
	default:
		errs = append(errs, fmt.Errorf("unknown preference policy %q", c.Preference))
	}
	switch c.Sorting {
	case SortByStart, SortByEnd:
	default:
		errs = append(errs, fmt.Errorf("unknown sort policy %q", c.Sorting))
	}
	return errors.Join(errs...)
}

// offRoutingLimit is the allowed detour for a route of the given length.
func (c Config) offRoutingLimit(length float64) float64 {
	return c.OffRouting / 100 * length
}

// DefaultReach is the vicinity of a donor no volunteer can serve.
func (c Config) DefaultReach(food FoodType) float64 {
	if food == Perishable {
		return c.PerishableDefault
	}
	return c.NonPerishableDefault
}

// Reach is the vicinity a volunteer can serve for the given food type.
// Perishable food without climate control is bounded by the transport mode.
func (c Config) Reach(food FoodType, v *Agent) float64 {
	if food != Perishable || v.Climate {
		return v.Route().Length()
	}
	if v.Motorized {
		return c.PerishableMotorized
	}
	return c.PerishableNonMotorized
}

// precedes is the chronological constraint between a donor and a receiver.
func (c Config) precedes(donor, receiver *Agent) bool {
	if c.Sorting == SortByStart {
		return donor.EndTime < receiver.StartTime
	}
	return donor.EndTime < receiver.EndTime
}

// sortTime is the time field the receiver ordering uses.
func (c Config) sortTime(a *Agent) float64 {
	if c.Sorting == SortByStart {
		return a.StartTime
	}
	return a.EndTime
}
