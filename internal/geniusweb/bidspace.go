package geniusweb

import (
	"math/rand"
	"sort"
)

// BidSpace - все полные биды домена, отсортированные по убыванию полезности
type BidSpace struct {
	bids      []*Bid
	utils     []float64
	tolerance float64
}

type scoredBid struct {
	bid  *Bid
	util float64
}

func NewBidSpace(space UtilitySpace) (*BidSpace, error) {
	d := space.Domain()
	if d == nil || len(d.IssuesValues) == 0 {
		return nil, ErrEmptyBidSpace
	}
	issues := d.Issues()
	values := make([][]Value, len(issues))
	for i, issue := range issues {
		values[i] = d.IssuesValues[issue].Values()
		if len(values[i]) == 0 {
			return nil, ErrEmptyBidSpace
		}
	}

	var scored []scoredBid
	idx := make([]int, len(issues))
	for {
		assignment := make(map[string]Value, len(issues))
		for i, issue := range issues {
			assignment[issue] = values[i][idx[i]]
		}
		b := &Bid{IssueValues: assignment}
		scored = append(scored, scoredBid{bid: b, util: space.Utility(b)})

		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(values[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].util > scored[j].util })
	bs := &BidSpace{
		bids:      make([]*Bid, len(scored)),
		utils:     make([]float64, len(scored)),
		tolerance: minUtilityGap(scored),
	}
	for i, s := range scored {
		bs.bids[i] = s.bid
		bs.utils[i] = s.util
	}
	return bs, nil
}

// minUtilityGap - наименьшая ненулевая разница полезностей соседних бидов
func minUtilityGap(scored []scoredBid) float64 {
	gap := 1.0
	for i := 1; i < len(scored); i++ {
		d := scored[i-1].util - scored[i].util
		if d > 1e-12 && d < gap {
			gap = d
		}
	}
	return gap
}

// Tolerance - окно, внутри которого биды считаются равноценными
func (s *BidSpace) Tolerance() float64 { return s.tolerance }

func (s *BidSpace) Size() int { return len(s.bids) }

func (s *BidSpace) Max() (*Bid, float64) { return s.bids[0], s.utils[0] }

func (s *BidSpace) Min() (*Bid, float64) {
	last := len(s.bids) - 1
	return s.bids[last], s.utils[last]
}

// Between - биды с полезностью в [lo, hi], от лучших к худшим
func (s *BidSpace) Between(lo, hi float64) []*Bid {
	var out []*Bid
	for i, u := range s.utils {
		if u > hi {
			continue
		}
		if u < lo {
			break
		}
		out = append(out, s.bids[i])
	}
	return out
}

// Closest - бид с полезностью, ближайшей к target сверху; если таких нет, лучший
func (s *BidSpace) Closest(target float64) *Bid {
	best := s.bids[0]
	for i, u := range s.utils {
		if u < target {
			break
		}
		best = s.bids[i]
	}
	return best
}

// Pick - случайный бид из окна [target-tol, target+tol], иначе Closest
func (s *BidSpace) Pick(rng *rand.Rand, target, tol float64) *Bid {
	window := s.Between(target-tol, target+tol)
	if len(window) == 0 {
		return s.Closest(target)
	}
	return window[rng.Intn(len(window))]
}

func (s *BidSpace) Random(rng *rand.Rand) *Bid { return s.bids[rng.Intn(len(s.bids))] }
