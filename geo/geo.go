// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geo provides the straight-line geometry used by foodmatch.
package geo

import "gonum.org/v1/gonum/spatial/r2"

// Point is a location on the city plane, in kilometers.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a.vec(), b.vec()))
}

// Route is the straight path a volunteer travels.
type Route struct {
	From Point
	To   Point
}

func (r Route) Length() float64 {
	return Distance(r.From, r.To)
}

// OffRoute returns the perpendicular distance from p to the line through the
// route, computed as twice the triangle area over the route length.
// A degenerate route collapses to its start point.
func (r Route) OffRoute(p Point) float64 {
	length := r.Length()
	if length == 0 {
		return Distance(r.From, p)
	}
	twiceArea := r2.Cross(r2.Sub(r.From.vec(), r.To.vec()), r2.Sub(r.To.vec(), p.vec()))
	if twiceArea < 0 {
		twiceArea = -twiceArea
	}
	return twiceArea / length
}
