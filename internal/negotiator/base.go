// Package negotiator - переговорщики, работающие прямо в механизме, без партии GeniusWeb.
package negotiator

import (
	"math"
	"math/rand"
	"sort"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

const (
	maxCardinality  = 10000
	defaultReserved = 0.1
)

// table - исходы пространства, отсортированные по убыванию собственной полезности
type table struct {
	mechanism.BaseNegotiator

	outcomes []domain.Outcome
	utils    map[string]float64
	reserved float64
	rng      *rand.Rand
	proposed map[string]struct{}
}

func newTable(id string) table {
	return table{BaseNegotiator: mechanism.NewBaseNegotiator(id, "")}
}

func (t *table) Join(nmi *mechanism.NMI, ufun domain.UtilityFunction) error {
	if err := t.BaseNegotiator.Join(nmi, ufun); err != nil {
		return err
	}
	t.outcomes = nmi.RandomOutcomes(maxCardinality)
	t.utils = make(map[string]float64, len(t.outcomes))
	for _, o := range t.outcomes {
		t.utils[o.Key()] = ufun.Utility(o)
	}
	sort.SliceStable(t.outcomes, func(i, j int) bool {
		return t.utils[t.outcomes[i].Key()] > t.utils[t.outcomes[j].Key()]
	})

	t.reserved = ufun.ReservedValue()
	if math.IsNaN(t.reserved) || math.IsInf(t.reserved, 0) {
		t.reserved = defaultReserved
	}
	t.rng = rand.New(rand.NewSource(int64(nmi.Rand() * math.MaxInt32)))
	t.proposed = make(map[string]struct{})
	return nil
}

func (t *table) utility(o domain.Outcome) float64 {
	if u, ok := t.utils[o.Key()]; ok {
		return u
	}
	return t.Ufun().Utility(o)
}

func (t *table) best() domain.Outcome { return t.outcomes[0] }

// above - исходы с полезностью >= target, от лучших к худшим
func (t *table) above(target float64) []domain.Outcome {
	n := sort.Search(len(t.outcomes), func(i int) bool { return t.utils[t.outcomes[i].Key()] < target })
	return t.outcomes[:n]
}

// pickFresh - случайный ещё не предложенный исход не ниже target,
// иначе худший из допустимых, иначе лучший вообще
func (t *table) pickFresh(target float64) domain.Outcome {
	candidates := t.above(target)
	var fresh []domain.Outcome
	for _, o := range candidates {
		if _, ok := t.proposed[o.Key()]; !ok {
			fresh = append(fresh, o)
		}
	}

	var proposal domain.Outcome
	switch {
	case len(fresh) > 0:
		proposal = fresh[t.rng.Intn(len(fresh))]
	case len(candidates) > 0:
		proposal = candidates[len(candidates)-1]
	default:
		proposal = t.best()
	}
	t.proposed[proposal.Key()] = struct{}{}
	return proposal
}

// boulware - 1 - (1 - floor)·t^beta, не ниже floor
func boulware(progress, floor, beta float64) float64 {
	return math.Max(1-(1-floor)*math.Pow(progress, beta), floor)
}
