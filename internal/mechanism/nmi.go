package mechanism

import (
	"time"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

// NMI - то, что переговорщик может узнать о механизме
type NMI struct {
	mech *SAO
}

func (n *NMI) OutcomeSpace() *domain.OutcomeSpace { return n.mech.space }
func (n *NMI) NSteps() int                        { return n.mech.opts.NSteps }
func (n *NMI) TimeLimit() time.Duration           { return n.mech.opts.TimeLimit }
func (n *NMI) NegotiatorTimeLimit() time.Duration { return n.mech.opts.NegotiatorTimeLimit }
func (n *NMI) NNegotiators() int                  { return len(n.mech.negotiators) }
func (n *NMI) State() State                       { return n.mech.State() }
func (n *NMI) RelativeTime() float64              { return n.mech.State().RelativeTime }

// Rand - детерминированный по Seed источник случайности механизма
func (n *NMI) Rand() float64 {
	n.mech.rngMu.Lock()
	defer n.mech.rngMu.Unlock()
	return n.mech.rng.Float64()
}

// RandomOutcomes - до n исходов пространства без повторов
func (n *NMI) RandomOutcomes(count int) []domain.Outcome {
	n.mech.rngMu.Lock()
	defer n.mech.rngMu.Unlock()
	return n.mech.space.EnumerateOrSample(count, n.mech.rng)
}
