package domain

import (
	"math"
	"testing"
)

func TestParetoFrontier(t *testing.T) {
	space := &OutcomeSpace{Issues: []Issue{IntIssue("x", 3)}}
	a := &LinearAdditive{Space: space, Weights: []float64{1}, Values: []map[string]float64{{"0": 0, "1": 0.5, "2": 1}}}
	b := &LinearAdditive{Space: space, Weights: []float64{1}, Values: []map[string]float64{{"0": 1, "1": 0.4, "2": 0}}}

	frontier := ParetoFrontier(a, b, space)
	if len(frontier) != 3 {
		t.Fatalf("len(frontier) = %d, want 3", len(frontier))
	}

	// (0.5, 0.4) не доминируется ни (0,1), ни (1,0)
	if d := ParetoDistance(0.5, 0.4, frontier); d > eps {
		t.Errorf("ParetoDistance() on frontier = %v, want 0", d)
	}
	if d := ParetoDistance(0.5, 0.0, frontier); math.Abs(d-0.4) > eps {
		t.Errorf("ParetoDistance() = %v, want 0.4", d)
	}
}

func TestParetoFrontier_DropsDominated(t *testing.T) {
	space := &OutcomeSpace{Issues: []Issue{IntIssue("x", 2)}}
	a := &LinearAdditive{Space: space, Weights: []float64{1}, Values: []map[string]float64{{"0": 0.2, "1": 0.9}}}
	b := &LinearAdditive{Space: space, Weights: []float64{1}, Values: []map[string]float64{{"0": 0.2, "1": 0.9}}}

	frontier := ParetoFrontier(a, b, space)
	if len(frontier) != 1 || frontier[0].A != 0.9 {
		t.Errorf("frontier = %v, want single point (0.9, 0.9)", frontier)
	}
}

func TestParetoDistance_EmptyFrontier(t *testing.T) {
	if d := ParetoDistance(1, 1, nil); !math.IsNaN(d) {
		t.Errorf("ParetoDistance() with empty frontier = %v, want NaN", d)
	}
}
