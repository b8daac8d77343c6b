package mechanism

import (
	"context"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

// Negotiator - участник SAO. Механизм вызывает методы строго последовательно.
type Negotiator interface {
	ID() string
	Name() string
	Join(nmi *NMI, ufun domain.UtilityFunction) error
	OnNegotiationStart(ctx context.Context, state State) error
	Propose(ctx context.Context, state State) (domain.Outcome, error)
	Respond(ctx context.Context, state State, offer domain.Outcome, proposer string) (domain.Response, error)
	OnNegotiationEnd(ctx context.Context, state State)
}

// BaseNegotiator хранит NMI и ufun; встраивается в конкретные переговорщики
type BaseNegotiator struct {
	id   string
	name string
	nmi  *NMI
	ufun domain.UtilityFunction
}

func NewBaseNegotiator(id, name string) BaseNegotiator {
	if name == "" {
		name = id
	}
	return BaseNegotiator{id: id, name: name}
}

func (b *BaseNegotiator) ID() string   { return b.id }
func (b *BaseNegotiator) Name() string { return b.name }

func (b *BaseNegotiator) Join(nmi *NMI, ufun domain.UtilityFunction) error {
	if ufun == nil {
		return domain.ErrNilUtilityFunction
	}
	b.nmi = nmi
	b.ufun = ufun
	return nil
}

func (b *BaseNegotiator) NMI() *NMI                    { return b.nmi }
func (b *BaseNegotiator) Ufun() domain.UtilityFunction { return b.ufun }

func (b *BaseNegotiator) OnNegotiationStart(context.Context, State) error { return nil }
func (b *BaseNegotiator) OnNegotiationEnd(context.Context, State)         {}
