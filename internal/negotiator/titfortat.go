package negotiator

import (
	"context"
	"math"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

const panicAfter = 0.95

// TitForTat уступает ровно настолько, насколько оппонент уже отдал; после 0.95 времени сползает к reserved
type TitForTat struct {
	table
	maxOpponent float64
}

func NewTitForTat(id string) *TitForTat {
	return &TitForTat{table: newTable(id)}
}

func (n *TitForTat) target(t float64) float64 {
	target := 1 - n.maxOpponent
	if t > panicAfter {
		target -= (target - n.reserved) * (t - panicAfter) * 20
	}
	return math.Max(target, n.reserved)
}

// Propose - худший исход, который ещё не ниже цели
func (n *TitForTat) Propose(_ context.Context, state mechanism.State) (domain.Outcome, error) {
	candidates := n.above(n.target(state.RelativeTime))
	if len(candidates) == 0 {
		return n.best(), nil
	}
	return candidates[len(candidates)-1], nil
}

func (n *TitForTat) Respond(_ context.Context, state mechanism.State, offer domain.Outcome, _ string) (domain.Response, error) {
	u := n.utility(offer)
	n.maxOpponent = math.Max(n.maxOpponent, u)
	if u >= n.target(state.RelativeTime) {
		return domain.Accept, nil
	}
	return domain.Reject, nil
}
