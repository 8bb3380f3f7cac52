// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simulation

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/generate"
	"github.com/someonegg/foodmatch/geo"
)

func makeAgent(id int, role foodmatch.Role, food foodmatch.FoodType, x float64, start, end float64) foodmatch.Agent {
	return foodmatch.Agent{
		ID:        id,
		Role:      role,
		Food:      food,
		Amount:    foodmatch.DefaultMealSize,
		Start:     geo.Point{X: x},
		End:       geo.Point{X: -1, Y: -1},
		StartTime: start,
		EndTime:   end,
	}
}

func makeVolunteer(id int, amount float64) foodmatch.Agent {
	return foodmatch.Agent{
		ID:        id,
		Role:      foodmatch.Volunteer,
		Amount:    amount,
		Start:     geo.Point{},
		End:       geo.Point{X: 10},
		StartTime: 6,
		EndTime:   14,
		Motorized: true,
		Climate:   true,
	}
}

// one donor and one receiver per category, one volunteer serving both
func smallBatch() foodmatch.Batch {
	return foodmatch.Classify([]foodmatch.Agent{
		makeAgent(1, foodmatch.Donor, foodmatch.Perishable, 0, 8, 12),
		makeAgent(2, foodmatch.Receiver, foodmatch.Perishable, 2, 9, 16),
		makeAgent(3, foodmatch.Donor, foodmatch.NonPerishable, 0, 8, 12),
		makeAgent(4, foodmatch.Receiver, foodmatch.NonPerishable, 3, 9, 16),
		makeVolunteer(5, 10),
	})
}

type fakeRecorder struct {
	mu      sync.Mutex
	ops     map[string]int
	failed  int
	results int
}

func (f *fakeRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ops == nil {
		f.ops = make(map[string]int)
	}
	f.ops[op]++
	if !success {
		f.failed++
	}
}

func (f *fakeRecorder) ObserveResult(context.Context, *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results++
}

func TestRunner_Modes(t *testing.T) {
	t.Run("SequentialSharesVolunteers", func(t *testing.T) {
		rec := &fakeRecorder{}
		r := &Runner{Config: foodmatch.DefaultConfig(), Recorder: rec}
		res, err := r.Run(context.Background(), smallBatch(), nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		want := []foodmatch.Match{
			foodmatch.NewComplete(1, 5, 2),
			foodmatch.NewComplete(3, 5, 4),
		}
		if !reflect.DeepEqual(res.Matches, want) {
			t.Errorf("Expected %v, got %v", want, res.Matches)
		}
		if !reflect.DeepEqual(res.Volunteers, []int{5}) {
			t.Errorf("Expected volunteer 5 left, got %v", res.Volunteers)
		}
		v, _ := res.Registry.Lookup(5)
		if v.Remaining != 8 {
			t.Errorf("Expected 8 kg left, got %v", v.Remaining)
		}

		if rec.ops["run"] != 1 || rec.ops["match_perishable"] != 1 || rec.ops["match_non_perishable"] != 1 {
			t.Errorf("Unexpected observations %v", rec.ops)
		}
		if rec.failed != 0 || rec.results != 1 {
			t.Errorf("Expected 1 successful result, got %d failed %d results", rec.failed, rec.results)
		}
	})

	t.Run("ParallelPartitionsVolunteers", func(t *testing.T) {
		r := &Runner{Config: foodmatch.DefaultConfig(), Parallel: true}
		res, err := r.Run(context.Background(), smallBatch(), nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		want := []foodmatch.Match{
			foodmatch.NewComplete(1, 5, 2),
			foodmatch.NewDirect(3, 4),
		}
		if !reflect.DeepEqual(res.Matches, want) {
			t.Errorf("Expected %v, got %v", want, res.Matches)
		}
		if res.Perishable.Food != foodmatch.Perishable || res.NonPerishable.Food != foodmatch.NonPerishable {
			t.Errorf("Outcomes out of place: %v %v", res.Perishable.Food, res.NonPerishable.Food)
		}
	})
}

func TestRunner_Summary(t *testing.T) {
	t.Run("NoPerishableDonors", func(t *testing.T) {
		batch := foodmatch.Classify([]foodmatch.Agent{
			makeAgent(1, foodmatch.Receiver, foodmatch.Perishable, 2, 9, 16),
			makeAgent(3, foodmatch.Donor, foodmatch.NonPerishable, 0, 8, 12),
			makeAgent(4, foodmatch.Receiver, foodmatch.NonPerishable, 3, 9, 16),
		})
		r := &Runner{Config: foodmatch.DefaultConfig()}
		res, err := r.Run(context.Background(), batch, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		s := res.Summary
		if s.PerishableDonors != 0 || s.PerishableReceivers != 1 {
			t.Errorf("Unexpected counts %+v", s)
		}
		if got := s.PerishableRatio().String(); got != "undefined" {
			t.Errorf("Expected undefined, got %q", got)
		}
		if got := s.NonPerishableRatio().String(); got != "100.00 %" {
			t.Errorf("Expected 100.00 %%, got %q", got)
		}
		if !reflect.DeepEqual(res.Perishable.UnmatchedReceivers, []int{1}) {
			t.Errorf("Expected receiver 1 unmatched, got %v", res.Perishable.UnmatchedReceivers)
		}
	})

	t.Run("Availability", func(t *testing.T) {
		batch := generate.Batch(generate.Options{Agents: 500, Seed: 11})
		avail := Availability(4)
		r := &Runner{Config: foodmatch.DefaultConfig(), Availability: &avail}
		res, err := r.Run(context.Background(), batch, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		want := len(batch.Volunteers) * 4 / 32
		if res.Summary.Volunteers != want {
			t.Errorf("Expected %d volunteers, got %d", want, res.Summary.Volunteers)
		}
		if res.Summary.Availability != avail {
			t.Errorf("Expected %v, got %v", avail, res.Summary.Availability)
		}
	})
}

func TestRunner_Generated(t *testing.T) {
	batch := generate.Batch(generate.Options{Agents: 800, Seed: 5})

	for _, parallel := range []bool{false, true} {
		seed := uint64(9)
		r := &Runner{Config: foodmatch.DefaultConfig(), Seed: &seed, Parallel: parallel}
		res, err := r.Run(context.Background(), batch, nil)
		if err != nil {
			t.Fatalf("Run(parallel=%v): %v", parallel, err)
		}

		donors, receivers := map[int]bool{}, map[int]bool{}
		for _, m := range res.Matches {
			if !m.HasReceiver() {
				t.Fatalf("Reported match without receiver: %v", m)
			}
			if donors[m.Donor] || receivers[m.Receiver] {
				t.Fatalf("Agent matched twice in %v", m)
			}
			donors[m.Donor], receivers[m.Receiver] = true, true

			d, _ := res.Registry.Lookup(m.Donor)
			rc, _ := res.Registry.Lookup(m.Receiver)
			if d.Role != foodmatch.Donor || rc.Role != foodmatch.Receiver || d.Food != rc.Food {
				t.Fatalf("Mismatched pair %v", m)
			}
		}
		if got := res.Summary.PerishableMatched + res.Summary.NonPerishableMatched; got != len(res.Matches) {
			t.Errorf("Summary counts %d matches, result has %d", got, len(res.Matches))
		}

		again, err := (&Runner{Config: foodmatch.DefaultConfig(), Seed: &seed, Parallel: parallel}).
			Run(context.Background(), batch, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !reflect.DeepEqual(res.Matches, again.Matches) {
			t.Errorf("Same seed gave different matches (parallel=%v)", parallel)
		}
	}
}

func TestRunner_Manipulation(t *testing.T) {
	batch := generate.Batch(generate.Options{Agents: 600, Seed: 21})
	r := &Runner{Config: foodmatch.DefaultConfig()}
	base, err := r.Run(context.Background(), batch, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(base.Matches) < 2 {
		t.Skipf("batch too small, %d matches", len(base.Matches))
	}

	manip, err := r.SelectManipulation(batch, base.Matches)
	if err != nil {
		t.Fatalf("SelectManipulation: %v", err)
	}
	if len(manip.Agents) == 0 {
		t.Fatal("Expected manipulated agents")
	}
	for _, m := range manip.Previous {
		touched := false
		for _, id := range manip.Agents {
			touched = touched || m.Involves(id)
		}
		if !touched {
			t.Errorf("Previous match %v involves no manipulated agent", m)
		}
	}

	res, err := r.Run(context.Background(), batch, manip)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rep := res.Manipulation
	if rep == nil {
		t.Fatal("Expected manipulation report")
	}
	if rep.Total != len(manip.Agents) || rep.Better+rep.Worse+rep.Same+rep.Uncomparable != rep.Total {
		t.Errorf("Inconsistent report %+v for %d agents", rep, len(manip.Agents))
	}
	if res.Summary.Manipulated != rep.Total {
		t.Errorf("Summary lost the report: %+v", res.Summary)
	}
}

func TestRunner_SelectManipulation(t *testing.T) {
	batch := smallBatch()

	t.Run("Nothing", func(t *testing.T) {
		r := &Runner{Config: foodmatch.DefaultConfig()}
		_, err := r.SelectManipulation(batch, []foodmatch.Match{foodmatch.NewDirect(100, 101)})
		if !errors.Is(err, ErrNothingToManipulate) {
			t.Errorf("Expected ErrNothingToManipulate, got %v", err)
		}
	})

	t.Run("SingleAgent", func(t *testing.T) {
		r := &Runner{Config: foodmatch.DefaultConfig()}
		previous := []foodmatch.Match{foodmatch.NewVolunteerOnly(1, 5)}
		manip, err := r.SelectManipulation(batch, previous)
		if err != nil {
			t.Fatalf("SelectManipulation: %v", err)
		}
		if !reflect.DeepEqual(manip.Agents, []int{1}) {
			t.Errorf("Expected donor 1, got %v", manip.Agents)
		}
		if !reflect.DeepEqual(manip.Previous, previous) {
			t.Errorf("Expected %v, got %v", previous, manip.Previous)
		}
	})

	t.Run("ProperSubset", func(t *testing.T) {
		previous := []foodmatch.Match{foodmatch.NewComplete(1, 5, 2), foodmatch.NewDirect(3, 4)}
		for seed := uint64(0); seed < 20; seed++ {
			seed := seed
			r := &Runner{Config: foodmatch.DefaultConfig(), Seed: &seed}
			manip, err := r.SelectManipulation(batch, previous)
			if err != nil {
				t.Fatalf("SelectManipulation: %v", err)
			}
			if n := len(manip.Agents); n < 1 || n > 3 {
				t.Fatalf("Expected 1 to 3 of 4 agents, got %v", manip.Agents)
			}
			for _, id := range manip.Agents {
				if id == 5 {
					t.Fatalf("Volunteers must not be manipulated, got %v", manip.Agents)
				}
			}
		}
	})

	t.Run("UnknownAgent", func(t *testing.T) {
		r := &Runner{Config: foodmatch.DefaultConfig()}
		_, err := r.Run(context.Background(), batch, &Manipulation{Agents: []int{42}})
		if !errors.Is(err, foodmatch.ErrUnknownAgent) {
			t.Errorf("Expected ErrUnknownAgent, got %v", err)
		}
	})
}

func TestRunner_InvalidSettings(t *testing.T) {
	avail := Availability(3)
	r := &Runner{Config: foodmatch.DefaultConfig(), Availability: &avail}
	if _, err := r.Run(context.Background(), smallBatch(), nil); err == nil {
		t.Error("Expected error for 3X availability")
	}

	cfg := foodmatch.DefaultConfig()
	cfg.MealSize = 0
	r = &Runner{Config: cfg}
	if _, err := r.Run(context.Background(), smallBatch(), nil); err == nil {
		t.Error("Expected error for zero meal size")
	}
}

func TestPartitionVolunteers(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6}
	tests := []struct {
		name   string
		p, np  int
		wantP  int
		wantNP int
	}{
		{"Proportional", 1, 2, 2, 4},
		{"NoDonors", 0, 0, 3, 3},
		{"OnlyPerishable", 4, 0, 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := partitionVolunteers(ids, tt.p, tt.np)
			if len(a) != tt.wantP || len(b) != tt.wantNP {
				t.Errorf("Expected %d/%d, got %v/%v", tt.wantP, tt.wantNP, a, b)
			}
		})
	}
}

func TestParseAvailability(t *testing.T) {
	for s, want := range map[string]Availability{"32X": 32, "1x": 1, " 8 ": 8, "16X": 16} {
		got, err := ParseAvailability(s)
		if err != nil || got != want {
			t.Errorf("ParseAvailability(%q) = %v, %v", s, got, err)
		}
	}
	for _, s := range []string{"", "X", "3X", "64X", "abc"} {
		if _, err := ParseAvailability(s); err == nil {
			t.Errorf("ParseAvailability(%q) expected error", s)
		}
	}
	if got := Availability(4).String(); got != "4X" {
		t.Errorf("Expected 4X, got %q", got)
	}
}
