package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrNotJoined           = errors.New("negotiator has not joined a mechanism")
	ErrNilFactory          = errors.New("party factory is nil")
	ErrUnsupportedProtocol = errors.New("party does not support SAOP")
	ErrConnectionClosed    = errors.New("party connection is closed")
	ErrConnectionFull      = errors.New("party sent too many actions")
	ErrInboxFull           = errors.New("party inbox is full")
	ErrPartyBusy           = errors.New("party still handles the previous turn")
	ErrPartyDead           = errors.New("party exceeded max failures")
	ErrUnknownPolicy       = errors.New("unknown failure policy")
)

// FailureKind - метка для логов и метрик
type FailureKind string

const (
	FailureTimeout           FailureKind = "timeout"
	FailurePanic             FailureKind = "panic"
	FailureNotify            FailureKind = "notify_error"
	FailureForeignActor      FailureKind = "foreign_actor"
	FailureInvalidBid        FailureKind = "invalid_bid"
	FailureUnsupportedAction FailureKind = "unsupported_action"
	FailureAcceptMismatch    FailureKind = "accept_mismatch"
)

// PartyError - нарушение протокола обёрнутой партией
type PartyError struct {
	Kind  FailureKind
	Party string
	Err   error
}

func (e *PartyError) Error() string {
	return fmt.Sprintf("party %s: %s: %v", e.Party, e.Kind, e.Err)
}

func (e *PartyError) Unwrap() error { return e.Err }
