// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b Point
		want float64
	}{
		{"Same", Point{1, 1}, Point{1, 1}, 0},
		{"Axis", Point{0, 0}, Point{10, 0}, 10},
		{"Triangle", Point{0, 0}, Point{3, 4}, 5},
		{"Negative", Point{-1, -1}, Point{2, 3}, 5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Distance(c.a, c.b); math.Abs(got-c.want) > 1e-9 {
				t.Errorf("Distance(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
			if got := Distance(c.b, c.a); math.Abs(got-c.want) > 1e-9 {
				t.Errorf("Distance is not symmetric: %v", got)
			}
		})
	}
}

func TestRouteOffRoute(t *testing.T) {
	route := Route{From: Point{0, 0}, To: Point{10, 0}}

	if got := route.Length(); got != 10 {
		t.Fatalf("Length() = %v, want 10", got)
	}

	cases := []struct {
		name string
		p    Point
		want float64
	}{
		{"OnRoute", Point{5, 0}, 0},
		{"Above", Point{5, 3}, 3},
		{"Below", Point{2, -4}, 4},
		{"BeyondEnd", Point{20, 1}, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := route.OffRoute(c.p); math.Abs(got-c.want) > 1e-9 {
				t.Errorf("OffRoute(%v) = %v, want %v", c.p, got, c.want)
			}
		})
	}

	t.Run("Degenerate", func(t *testing.T) {
		r := Route{From: Point{1, 1}, To: Point{1, 1}}
		if got := r.OffRoute(Point{4, 5}); math.Abs(got-5) > 1e-9 {
			t.Errorf("OffRoute on degenerate route = %v, want 5", got)
		}
	})
}
