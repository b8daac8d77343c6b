package negotiator

import (
	"context"
	"math"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

const (
	hardFloor      = 0.5
	modelMinBids   = 5
	topK           = 5
	lateAcceptTime = 0.98
	lateAcceptGap  = 0.05
)

// FrequencyFloor никогда не опускается ниже 0.5 и после пяти ставок оппонента
// выбирает среди допустимых исходов тот, чьи значения оппонент называл чаще всего
type FrequencyFloor struct {
	table
	floor        float64
	bestOpponent float64
	history      int
	counts       []map[string]int
}

func NewFrequencyFloor(id string) *FrequencyFloor {
	return &FrequencyFloor{table: newTable(id)}
}

func (n *FrequencyFloor) Join(nmi *mechanism.NMI, ufun domain.UtilityFunction) error {
	if err := n.table.Join(nmi, ufun); err != nil {
		return err
	}
	reserved := ufun.ReservedValue()
	if math.IsNaN(reserved) || math.IsInf(reserved, 0) {
		reserved = 0
	}
	n.floor = math.Max(reserved, hardFloor)
	n.bestOpponent = n.floor
	n.counts = make([]map[string]int, len(nmi.OutcomeSpace().Issues))
	for i := range n.counts {
		n.counts[i] = make(map[string]int)
	}
	return nil
}

func (n *FrequencyFloor) target(t float64) float64 {
	return math.Max(boulware(t, n.floor, 2.5), n.bestOpponent)
}

func (n *FrequencyFloor) Respond(_ context.Context, state mechanism.State, offer domain.Outcome, _ string) (domain.Response, error) {
	n.history++
	for i, v := range offer {
		if i < len(n.counts) {
			n.counts[i][v]++
		}
	}

	u := n.utility(offer)
	n.bestOpponent = math.Max(n.bestOpponent, u)
	if u >= n.target(state.RelativeTime) {
		return domain.Accept, nil
	}
	if state.RelativeTime > lateAcceptTime && u >= math.Max(n.floor, n.bestOpponent-lateAcceptGap) {
		return domain.Accept, nil
	}
	return domain.Reject, nil
}

func (n *FrequencyFloor) Propose(_ context.Context, state mechanism.State) (domain.Outcome, error) {
	target := n.target(state.RelativeTime)

	valid := n.above(target)
	fresh := make([]domain.Outcome, 0, len(valid))
	for _, o := range valid {
		if _, ok := n.proposed[o.Key()]; !ok {
			fresh = append(fresh, o)
		}
	}
	if len(fresh) > 0 {
		valid = fresh
	}
	if len(valid) == 0 {
		if floor := n.above(n.floor); len(floor) > 0 {
			valid = floor[len(floor)-1:]
		} else {
			valid = []domain.Outcome{n.best()}
		}
	}

	var proposal domain.Outcome
	if n.history < modelMinBids {
		proposal = valid[n.rng.Intn(min(topK, len(valid)))]
	} else {
		proposal = n.mostFamiliar(valid)
	}
	n.proposed[proposal.Key()] = struct{}{}
	return proposal, nil
}

// mostFamiliar - исход с наибольшей суммой частот значений в ставках оппонента
func (n *FrequencyFloor) mostFamiliar(candidates []domain.Outcome) domain.Outcome {
	best, bestScore := candidates[0], -1
	for _, o := range candidates {
		score := 0
		for i, v := range o {
			score += n.counts[i][v]
		}
		if score > bestScore {
			best, bestScore = o, score
		}
	}
	return best
}
