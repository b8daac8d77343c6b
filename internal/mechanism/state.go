package mechanism

import (
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

// State - снимок механизма, который видят переговорщики
type State struct {
	Running         bool
	Started         bool
	Step            int
	RelativeTime    float64
	CurrentOffer    domain.Outcome
	CurrentProposer string
	Agreement       domain.Outcome
	TimedOut        bool
	Broken          bool
	HasError        bool
	ErrorDetails    string
	ErredNegotiator string
	Negotiators     []string
}

func (s State) Ended() bool { return s.Started && !s.Running }

func (s State) Status() domain.SessionStatus {
	switch {
	case s.HasError:
		return domain.StatusError
	case s.Agreement != nil:
		return domain.StatusAgreed
	case s.Broken:
		return domain.StatusEnded
	}
	return domain.StatusTimedOut
}

func (s State) clone() State {
	out := s
	out.CurrentOffer = s.CurrentOffer.Clone()
	out.Agreement = s.Agreement.Clone()
	out.Negotiators = append([]string(nil), s.Negotiators...)
	return out
}
