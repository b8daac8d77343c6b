package domain

import "math"

type UtilityPoint struct {
	A float64
	B float64
}

// ParetoFrontier - точки (u_a, u_b), не доминируемые ни одной другой точкой
func ParetoFrontier(a, b UtilityFunction, space *OutcomeSpace) []UtilityPoint {
	outcomes := space.Enumerate()
	points := make([]UtilityPoint, 0, len(outcomes))
	for _, o := range outcomes {
		points = append(points, UtilityPoint{A: a.Utility(o), B: b.Utility(o)})
	}

	var frontier []UtilityPoint
	for _, p := range points {
		dominated := false
		for _, q := range points {
			if q.A >= p.A && q.B >= p.B && (q.A > p.A || q.B > p.B) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, p)
		}
	}
	return frontier
}

// ParetoDistance - евклидово расстояние до ближайшей точки фронта, NaN для пустого фронта
func ParetoDistance(ua, ub float64, frontier []UtilityPoint) float64 {
	if len(frontier) == 0 {
		return math.NaN()
	}
	best := math.Inf(1)
	for _, p := range frontier {
		best = math.Min(best, math.Hypot(ua-p.A, ub-p.B))
	}
	return best
}
