package negotiator

import (
	"context"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
	"github.com/kitbuilder587/negotiation-bridge/internal/mechanism"
)

// Micro уступает на один исход за каждое новое предложение оппонента
type Micro struct {
	table
	pointer int
	seen    map[string]struct{}
}

func NewMicro(id string) *Micro {
	return &Micro{table: newTable(id), seen: make(map[string]struct{})}
}

func (n *Micro) Propose(context.Context, mechanism.State) (domain.Outcome, error) {
	return n.outcomes[n.pointer], nil
}

func (n *Micro) Respond(_ context.Context, _ mechanism.State, offer domain.Outcome, _ string) (domain.Response, error) {
	if _, ok := n.seen[offer.Key()]; !ok {
		n.seen[offer.Key()] = struct{}{}
		n.pointer = min(n.pointer+1, len(n.outcomes)-1)
	}
	if n.utility(offer) >= n.utility(n.outcomes[n.pointer]) {
		return domain.Accept, nil
	}
	return domain.Reject, nil
}
