// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads run settings from YAML. Unset fields take the engine
// defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/simulation"
)

type File struct {
	OverlapTime  *float64 `yaml:"overlap_time"`  // hours
	OffRouting   *float64 `yaml:"off_routing"`   // percent
	MealSize     *float64 `yaml:"meal_size"`     // kg
	ExtraPayload *float64 `yaml:"extra_payload"` // percent

	PerishableMotorized    *float64 `yaml:"perishable_motorized"`     // km
	PerishableNonMotorized *float64 `yaml:"perishable_non_motorized"` // km
	PerishableDefault      *float64 `yaml:"perishable_default"`       // km
	NonPerishableDefault   *float64 `yaml:"non_perishable_default"`   // km

	Preference *string `yaml:"preference"`
	Sorting    *string `yaml:"sorting"`

	Volunteers *string `yaml:"volunteers"` // 1X..32X
	Parallel   *bool   `yaml:"parallel"`
	Seed       *uint64 `yaml:"seed"`

	Store           string `yaml:"store"`   // database DSN
	Archive         string `yaml:"archive"` // directory or s3://bucket/prefix
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// Load reads a YAML file. Unknown keys are rejected.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	f, err := Parse(raw)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func Parse(raw []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, err
	}
	return f, nil
}

// Engine returns the matching config with unset fields defaulted.
func (f File) Engine() foodmatch.Config {
	c := foodmatch.DefaultConfig()
	set(&c.OverlapTime, f.OverlapTime)
	set(&c.OffRouting, f.OffRouting)
	set(&c.MealSize, f.MealSize)
	set(&c.ExtraPayload, f.ExtraPayload)
	set(&c.PerishableMotorized, f.PerishableMotorized)
	set(&c.PerishableNonMotorized, f.PerishableNonMotorized)
	set(&c.PerishableDefault, f.PerishableDefault)
	set(&c.NonPerishableDefault, f.NonPerishableDefault)
	if f.Preference != nil {
		c.Preference = foodmatch.PreferencePolicy(*f.Preference)
	}
	if f.Sorting != nil {
		c.Sorting = foodmatch.SortPolicy(*f.Sorting)
	}
	return c
}

func (f File) Availability() (simulation.Availability, error) {
	if f.Volunteers == nil {
		return simulation.DefaultAvailability, nil
	}
	return simulation.ParseAvailability(*f.Volunteers)
}

// Runner builds a validated runner from the file.
func (f File) Runner() (*simulation.Runner, error) {
	cfg := f.Engine()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	avail, err := f.Availability()
	if err != nil {
		return nil, err
	}
	r := &simulation.Runner{
		Config:       cfg,
		Availability: &avail,
		Seed:         f.Seed,
	}
	if f.Parallel != nil {
		r.Parallel = *f.Parallel
	}
	return r, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
