// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import (
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config rejected: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"NegativeOverlap", func(c *Config) { c.OverlapTime = -1 }},
		{"NegativeReach", func(c *Config) { c.NonPerishableDefault = -0.5 }},
		{"ZeroMeal", func(c *Config) { c.MealSize = 0 }},
		{"UnknownPreference", func(c *Config) { c.Preference = "best" }},
		{"UnknownSorting", func(c *Config) { c.Sorting = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestConfig_Reach(t *testing.T) {
	cfg := DefaultConfig()
	v := makeVolunteer(1, 10, pt(0, 0), pt(30, 40), 0, 1)

	if got := cfg.DefaultReach(Perishable); got != DefaultPerishableReach {
		t.Errorf("Expected %v, got %v", DefaultPerishableReach, got)
	}
	if got := cfg.DefaultReach(NonPerishable); got != DefaultNonPerishableReach {
		t.Errorf("Expected %v, got %v", DefaultNonPerishableReach, got)
	}

	tests := []struct {
		name      string
		food      FoodType
		climate   bool
		motorized bool
		want      float64
	}{
		{"NonPerishable", NonPerishable, false, false, 50},
		{"Climate", Perishable, true, false, 50},
		{"Motorized", Perishable, false, true, DefaultPerishableMotorized},
		{"OnFoot", Perishable, false, false, DefaultPerishableNonMotorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.Climate, v.Motorized = tt.climate, tt.motorized
			if got := cfg.Reach(tt.food, &v); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestConfig_Precedes(t *testing.T) {
	d := makeDonor(1, Perishable, pt(0, 0), 1, 5)
	r := makeReceiver(2, Perishable, pt(0, 0), 4, 8)

	cfg := DefaultConfig()
	if !cfg.precedes(&d, &r) {
		t.Error("Expected donor to close before receiver under end sorting")
	}
	cfg.Sorting = SortByStart
	if cfg.precedes(&d, &r) {
		t.Error("Donor closes after receiver opens under start sorting")
	}
}
