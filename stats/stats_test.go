// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats_test

import (
	"testing"

	"code.hybscloud.com/substrate/stats"
)

func TestDistributionBasic(t *testing.T) {
	d := stats.NewDistribution()
	for _, v := range []uint64{3, 1, 4, 1, 5} {
		d.Update(v)
	}
	if d.Min != 1 {
		t.Fatalf("Min = %d, want 1", d.Min)
	}
	if d.Max != 5 {
		t.Fatalf("Max = %d, want 5", d.Max)
	}
	if d.Count != 5 {
		t.Fatalf("Count = %d, want 5", d.Count)
	}
	if d.Sum != 14 {
		t.Fatalf("Sum = %d, want 14", d.Sum)
	}
	if got, want := d.Average(), uint64(14/5); got != want {
		t.Fatalf("Average() = %d, want %d", got, want)
	}
}

func TestDistributionEmptyAverage(t *testing.T) {
	d := stats.NewDistribution()
	if d.Average() != 0 {
		t.Fatalf("Average() on empty distribution = %d, want 0", d.Average())
	}
}

// Property 11: updating with any sequence of values never corrupts the
// accumulator — count never decreases faster than updates, min <= max,
// and rescaling keeps Sum/Count a sane mean rather than wrapping.
func TestDistributionOverflowSafety(t *testing.T) {
	d := stats.NewDistribution()
	d.Sum = ^uint64(0) - 5
	d.Count = ^uint64(0) - 1
	d.SumSquares = ^uint64(0) - 5

	for i := uint64(0); i < 10; i++ {
		d.Update(100)
		if d.Min > d.Max {
			t.Fatalf("Min (%d) > Max (%d) after Update", d.Min, d.Max)
		}
	}
	// No panic, no wraparound: Sum must stay a plausible value relative
	// to Count instead of wrapping back near zero.
	if d.Count == 0 {
		t.Fatalf("Count collapsed to 0 after overflow-triggering updates")
	}
	if d.Average() == 0 {
		t.Fatalf("Average() = 0 after rescaling (Sum=%d, Count=%d), want Sum to stay near Count", d.Sum, d.Count)
	}
}

func TestDistributionAddMerge(t *testing.T) {
	a := stats.NewDistribution()
	a.Update(10)
	a.Update(20)

	b := stats.NewDistribution()
	b.Update(5)
	b.Update(30)

	a.Add(b)
	if a.Min != 5 {
		t.Fatalf("Min after Add = %d, want 5", a.Min)
	}
	if a.Max != 30 {
		t.Fatalf("Max after Add = %d, want 30", a.Max)
	}
	if a.Count != 4 {
		t.Fatalf("Count after Add = %d, want 4", a.Count)
	}
	if a.Sum != 65 {
		t.Fatalf("Sum after Add = %d, want 65", a.Sum)
	}
}
