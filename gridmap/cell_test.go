package gridmap

import (
	"testing"

	"github.com/openslam-go/scanmatch/geom"
)

// TestAccumulatorMonotonicity exercises the invariant that visits never
// decreases and hits never exceeds visits.
func TestAccumulatorMonotonicity(t *testing.T) {
	var c CellAccumulator
	hits := []bool{true, false, true, true, false, false, true}
	prevVisits := uint32(0)
	for _, hit := range hits {
		c.Update(hit, geom.Point{X: 1, Y: 2})
		if c.Visits < prevVisits {
			t.Fatalf("visits decreased: %d -> %d", prevVisits, c.Visits)
		}
		if c.Hits > c.Visits {
			t.Fatalf("hits %d exceeds visits %d", c.Hits, c.Visits)
		}
		prevVisits = c.Visits
	}
	if c.Visits != uint32(len(hits)) {
		t.Fatalf("visits = %d, want %d", c.Visits, len(hits))
	}
}

func TestAccumulatorMeanAndFullness(t *testing.T) {
	var c CellAccumulator
	if _, ok := c.Mean(); ok {
		t.Fatal("Mean() should be undefined on zero-value accumulator")
	}
	if f := c.Fullness(); f != 0 {
		t.Fatalf("Fullness() = %v on unvisited cell, want 0", f)
	}

	c.Update(true, geom.Point{X: 2, Y: 4})
	c.Update(true, geom.Point{X: 4, Y: 8})
	c.Update(false, geom.Point{})

	mean, ok := c.Mean()
	if !ok {
		t.Fatal("Mean() should be defined once Hits > 0")
	}
	if mean.X != 3 || mean.Y != 6 {
		t.Fatalf("Mean() = %+v, want {3 6}", mean)
	}
	if got, want := c.Fullness(), 2.0/3.0; got != want {
		t.Fatalf("Fullness() = %v, want %v", got, want)
	}
}
