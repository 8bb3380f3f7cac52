// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simulation

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// Ratio is a count over a cohort size. It is undefined for an empty cohort.
type Ratio struct {
	Num int
	Den int
}

func (r Ratio) Defined() bool {
	return r.Den != 0
}

// Percent returns the ratio in percent, and false when it is undefined.
func (r Ratio) Percent() (float64, bool) {
	if !r.Defined() {
		return 0, false
	}
	return 100 * float64(r.Num) / float64(r.Den), true
}

func (r Ratio) String() string {
	p, ok := r.Percent()
	if !ok {
		return "undefined"
	}
	return fmt.Sprintf("%.2f %%", p)
}

func (s Summary) Agents() int {
	return s.PerishableDonors + s.NonPerishableDonors + s.PerishableReceivers +
		s.NonPerishableReceivers + s.Volunteers
}

// Matched is the share of donors matched over both categories.
func (s Summary) Matched() Ratio {
	return Ratio{s.PerishableMatched + s.NonPerishableMatched, s.PerishableDonors + s.NonPerishableDonors}
}

func (s Summary) PerishableRatio() Ratio {
	return Ratio{s.PerishableMatched, s.PerishableDonors}
}

func (s Summary) NonPerishableRatio() Ratio {
	return Ratio{s.NonPerishableMatched, s.NonPerishableDonors}
}

func (s Summary) BetterRatio() Ratio       { return Ratio{s.Better, s.Manipulated} }
func (s Summary) WorseRatio() Ratio        { return Ratio{s.Worse, s.Manipulated} }
func (s Summary) SameRatio() Ratio         { return Ratio{s.Same, s.Manipulated} }
func (s Summary) UncomparableRatio() Ratio { return Ratio{s.Uncomparable, s.Manipulated} }

func count(n int) string {
	return humanize.Comma(int64(n))
}

func share(r Ratio) string {
	return fmt.Sprintf("%s / %s\t(%v)", count(r.Num), count(r.Den), r)
}

// WriteReport renders the summary as aligned text. The manipulation block is
// written only when withManipulation is set.
func (s Summary) WriteReport(w io.Writer, withManipulation bool) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintf(tw, "AGENT COUNTS:\t%s\n", count(s.Agents()))
	fmt.Fprintf(tw, "Perishable donors:\t%s\n", count(s.PerishableDonors))
	fmt.Fprintf(tw, "Non-perishable donors:\t%s\n", count(s.NonPerishableDonors))
	fmt.Fprintf(tw, "Perishable receivers:\t%s\n", count(s.PerishableReceivers))
	fmt.Fprintf(tw, "Non-perishable receivers:\t%s\n", count(s.NonPerishableReceivers))
	fmt.Fprintf(tw, "Volunteers:\t%s\t(%v donors)\n", count(s.Volunteers), s.Availability)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "AGENTS MATCHED:\t%s\n", share(s.Matched()))
	fmt.Fprintf(tw, "Perishable:\t%s\n", share(s.PerishableRatio()))
	fmt.Fprintf(tw, "Non-perishable:\t%s\n", share(s.NonPerishableRatio()))

	if withManipulation {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "MANIPULATION RESULTS:\t%s\n", count(s.Manipulated))
		fmt.Fprintf(tw, "Gained:\t%s\t(%v)\n", count(s.Better), s.BetterRatio())
		fmt.Fprintf(tw, "Lost:\t%s\t(%v)\n", count(s.Worse), s.WorseRatio())
		fmt.Fprintf(tw, "Same:\t%s\t(%v)\n", count(s.Same), s.SameRatio())
		fmt.Fprintf(tw, "Uncomparable:\t%s\t(%v)\n", count(s.Uncomparable), s.UncomparableRatio())
	}

	return tw.Flush()
}
