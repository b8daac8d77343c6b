package domain

import (
	"strings"
	"time"
)

type SessionStatus string

const (
	StatusAgreed   SessionStatus = "agreed"
	StatusTimedOut SessionStatus = "timedout"
	StatusEnded    SessionStatus = "ended"
	StatusError    SessionStatus = "error"
)

func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusAgreed, StatusTimedOut, StatusEnded, StatusError:
		return true
	}
	return false
}

func (s SessionStatus) String() string { return string(s) }

type TraceAction string

const (
	ActionOffer  TraceAction = "offer"
	ActionAccept TraceAction = "accept"
	ActionEnd    TraceAction = "end"
	ActionNone   TraceAction = "none"
)

// TraceEntry - одно действие переговорщика в механизме
type TraceEntry struct {
	Step         int
	Negotiator   string
	Action       TraceAction
	Outcome      Outcome
	RelativeTime float64
	At           time.Time
}

// SessionRecord - итог одной сессии переговоров
type SessionRecord struct {
	ID             string
	Scenario       string
	Participants   []string
	NSteps         int
	Steps          int
	Status         SessionStatus
	Agreement      Outcome // nil если соглашения нет
	Utilities      []float64
	Welfare        float64
	Nash           float64
	ParetoDistance float64
	ErrorDetails   string
	Duration       time.Duration
	CreatedAt      time.Time
}

func (s *SessionRecord) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSessionID
	}
	if len(s.Participants) < 2 {
		return ErrInvalidParticipant
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (s *SessionRecord) Agreed() bool { return s.Agreement != nil }
