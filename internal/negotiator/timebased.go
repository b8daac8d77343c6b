package negotiator

import (
	"context"
	"math"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

// TimeBased - boulware с beta=5: держится почти до конца, потом резко уступает
type TimeBased struct {
	table
	beta float64
}

func NewTimeBased(id string) *TimeBased {
	return &TimeBased{table: newTable(id), beta: 5}
}

func (n *TimeBased) target(t float64) float64 { return boulware(t, n.reserved, n.beta) }

func (n *TimeBased) Propose(_ context.Context, state mechanism.State) (domain.Outcome, error) {
	return n.pickFresh(n.target(state.RelativeTime)), nil
}

func (n *TimeBased) Respond(_ context.Context, state mechanism.State, offer domain.Outcome, _ string) (domain.Response, error) {
	if n.utility(offer) >= n.target(state.RelativeTime) {
		return domain.Accept, nil
	}
	return domain.Reject, nil
}

// Adaptive - beta=2, но не опускается ниже лучшего, что уже предлагал оппонент
type Adaptive struct {
	table
	beta         float64
	bestOpponent float64
}

func NewAdaptive(id string) *Adaptive {
	return &Adaptive{table: newTable(id), beta: 2}
}

func (n *Adaptive) Join(nmi *mechanism.NMI, ufun domain.UtilityFunction) error {
	if err := n.table.Join(nmi, ufun); err != nil {
		return err
	}
	n.bestOpponent = n.reserved
	return nil
}

func (n *Adaptive) target(t float64) float64 {
	return math.Max(boulware(t, n.reserved, n.beta), n.bestOpponent)
}

func (n *Adaptive) Propose(_ context.Context, state mechanism.State) (domain.Outcome, error) {
	return n.pickFresh(n.target(state.RelativeTime)), nil
}

func (n *Adaptive) Respond(_ context.Context, state mechanism.State, offer domain.Outcome, _ string) (domain.Response, error) {
	u := n.utility(offer)
	n.bestOpponent = math.Max(n.bestOpponent, u)
	if u >= n.target(state.RelativeTime) {
		return domain.Accept, nil
	}
	return domain.Reject, nil
}
