// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stats provides an overflow-safe running distribution,
// ported from libam_stats.c's amstat_range_t and shared by
// code.hybscloud.com/substrate/workerpool and
// code.hybscloud.com/substrate/memarena.
//
// Distribution is not safe for concurrent use; callers serialize updates
// the way libam_thread_pool.c does (a per-thread local distribution
// folded into the shared one under a mutex on thread exit).
package stats

import "fmt"

// maxSumSquares is the largest value that can be squared without
// ambiguity about overflow, ported from libam_stats.h's
// AMSTAT_MAX_SSQ_VAL.
const maxSumSquares = 0xFFFFFFFF

// Distribution is a running {min, max, sum, sum-of-squares, count}
// accumulator with an overflow-safe rescaling strategy: when sum, count,
// or the sum of squares would overflow a uint64, the new value is folded
// in and all fields are halved together without letting the intermediate
// sum wrap, preserving the mean within
// bounded error rather than corrupting the accumulator.
type Distribution struct {
	Min        uint64
	Max        uint64
	Sum        uint64
	SumSquares uint64
	Count      uint64
}

// NewDistribution returns a Distribution with workable initial values
// (Min set to the maximum uint64 so the first Update always lowers it).
func NewDistribution() Distribution {
	var d Distribution
	d.Reset()
	return d
}

// Reset restores d to its initial, empty state.
func (d *Distribution) Reset() {
	*d = Distribution{Min: ^uint64(0)}
}

// Update folds v into the distribution.
func (d *Distribution) Update(v uint64) {
	if d.Max < v {
		d.Max = v
	}
	if d.Min > v {
		d.Min = v
	}

	var square uint64
	ssqOverflowed := d.SumSquares == ^uint64(0) || v > maxSumSquares
	if ssqOverflowed {
		d.SumSquares = ^uint64(0)
	} else {
		square = v * v
	}

	sumOverflows := d.Sum+v < d.Sum
	ssqOverflows := !ssqOverflowed && d.SumSquares+square < d.SumSquares
	countSaturated := d.Count == ^uint64(0)

	if countSaturated || sumOverflows || ssqOverflows {
		// (a+b)/2 computed as a/2 + b/2 + carry, so a+b never wraps.
		d.Sum = d.Sum/2 + v/2 + d.Sum&v&1
		if d.SumSquares != ^uint64(0) {
			d.SumSquares = d.SumSquares/2 + square/2 + d.SumSquares&square&1
		}
		if countSaturated {
			d.Count = ^uint64(0)/2 + 1
		} else {
			d.Count = (d.Count + 1) / 2
		}
	} else {
		d.Sum += v
		d.SumSquares += square
		d.Count++
	}
}

// Add merges the contents of other into d, rescaling both (halving sum,
// count, and sum-of-squares) if merging would overflow.
func (d *Distribution) Add(other Distribution) {
	if d.Max < other.Max {
		d.Max = other.Max
	}
	if d.Min > other.Min {
		d.Min = other.Min
	}

	ssqSaturated := d.SumSquares == ^uint64(0) || other.SumSquares == ^uint64(0)
	ssqOverflows := !ssqSaturated && d.SumSquares+other.SumSquares < d.SumSquares
	if ssqOverflows || d.Sum+other.Sum < d.Sum || d.Count+other.Count < d.Count {
		d.Count /= 2
		d.Sum /= 2
		d.SumSquares /= 2
		other.Count /= 2
		other.Sum /= 2
		other.SumSquares /= 2
	}

	if ssqSaturated {
		d.SumSquares = ^uint64(0)
	} else {
		d.SumSquares += other.SumSquares
	}
	d.Sum += other.Sum
	d.Count += other.Count
}

// Average returns Sum/Count, or 0 for an empty distribution.
func (d Distribution) Average() uint64 {
	if d.Count == 0 {
		return 0
	}
	return d.Sum / d.Count
}

// String formats the distribution as "min\tavg\tmax\t(count)", matching
// amstat_2str's layout.
func (d Distribution) String() string {
	min := d.Min
	if min == ^uint64(0) {
		min = 0
	}
	return fmt.Sprintf("%15d\t%15d\t%15d\t(%d)", min, d.Average(), d.Max, d.Count)
}
