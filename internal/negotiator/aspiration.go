package negotiator

import (
	"context"
	"math"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

// Aspiration - уровень притязаний max - (max - reserved)·t^e; предлагает худший исход не ниже уровня
type Aspiration struct {
	table
	exponent float64
}

func NewAspiration(id string) *Aspiration {
	return &Aspiration{table: newTable(id), exponent: 4}
}

// NewTimeBasedConceding - линейная уступка
func NewTimeBasedConceding(id string) *Aspiration {
	return &Aspiration{table: newTable(id), exponent: 1}
}

func (a *Aspiration) level(t float64) float64 {
	hi := a.utility(a.best())
	lo := math.Max(a.reserved, a.utility(a.outcomes[len(a.outcomes)-1]))
	return hi - (hi-lo)*math.Pow(t, a.exponent)
}

func (a *Aspiration) Propose(_ context.Context, state mechanism.State) (domain.Outcome, error) {
	candidates := a.above(a.level(state.RelativeTime))
	if len(candidates) == 0 {
		return a.best(), nil
	}
	return candidates[len(candidates)-1], nil
}

func (a *Aspiration) Respond(_ context.Context, state mechanism.State, offer domain.Outcome, _ string) (domain.Response, error) {
	if u := a.utility(offer); u >= a.level(state.RelativeTime) && u >= a.reserved {
		return domain.Accept, nil
	}
	return domain.Reject, nil
}
