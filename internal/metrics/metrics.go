// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports run metrics in the Prometheus format.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/someonegg/foodmatch/simulation"
)

const namespace = "foodmatch"

var _ simulation.Recorder = (*Recorder)(nil)

// Recorder collects into its own registry.
type Recorder struct {
	reg *prometheus.Registry

	operations   *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	agents       *prometheus.GaugeVec
	matched      *prometheus.GaugeVec
	unmatched    *prometheus.GaugeVec
	manipulation *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Runs and per-category matching passes by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of runs and matching passes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"operation"}),
		agents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Agents of the last run by cohort.",
		}, []string{"cohort"}),
		matched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matched",
			Help:      "Donor-receiver matches of the last run by food type.",
		}, []string{"food"}),
		unmatched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched",
			Help:      "Agents left unmatched by the last run.",
		}, []string{"food", "role"}),
		manipulation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manipulation_outcomes",
			Help:      "Manipulated agents of the last run by effect.",
		}, []string{"effect"}),
	}
	r.reg.MustRegister(r.operations, r.durations, r.agents, r.matched, r.unmatched, r.manipulation)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

func (r *Recorder) Observe(_ context.Context, op string, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.operations.WithLabelValues(op, status).Inc()
	r.durations.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) ObserveResult(_ context.Context, res *simulation.Result) {
	s := res.Summary
	r.agents.WithLabelValues("perishable_donors").Set(float64(s.PerishableDonors))
	r.agents.WithLabelValues("non_perishable_donors").Set(float64(s.NonPerishableDonors))
	r.agents.WithLabelValues("perishable_receivers").Set(float64(s.PerishableReceivers))
	r.agents.WithLabelValues("non_perishable_receivers").Set(float64(s.NonPerishableReceivers))
	r.agents.WithLabelValues("volunteers").Set(float64(s.Volunteers))

	r.matched.WithLabelValues("perishable").Set(float64(s.PerishableMatched))
	r.matched.WithLabelValues("non_perishable").Set(float64(s.NonPerishableMatched))

	r.unmatched.WithLabelValues("perishable", "donor").Set(float64(len(res.Perishable.UnmatchedDonors)))
	r.unmatched.WithLabelValues("perishable", "receiver").Set(float64(len(res.Perishable.UnmatchedReceivers)))
	r.unmatched.WithLabelValues("non_perishable", "donor").Set(float64(len(res.NonPerishable.UnmatchedDonors)))
	r.unmatched.WithLabelValues("non_perishable", "receiver").Set(float64(len(res.NonPerishable.UnmatchedReceivers)))

	r.manipulation.Reset()
	if res.Manipulation != nil {
		r.manipulation.WithLabelValues("better").Set(float64(s.Better))
		r.manipulation.WithLabelValues("worse").Set(float64(s.Worse))
		r.manipulation.WithLabelValues("same").Set(float64(s.Same))
		r.manipulation.WithLabelValues("uncomparable").Set(float64(s.Uncomparable))
	}
}

// WriteTextfile writes the registry for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
