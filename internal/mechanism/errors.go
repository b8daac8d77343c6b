package mechanism

import "errors"

var (
	ErrAlreadyStarted      = errors.New("mechanism already started")
	ErrDuplicateNegotiator = errors.New("negotiator already joined")
	ErrNotEnoughNegotiator = errors.New("mechanism needs at least two negotiators")
	ErrNoLimit             = errors.New("either n_steps or time limit must be set")
	ErrNegotiatorTimeout   = errors.New("negotiator exceeded its time limit")
	ErrNegotiatorPanic     = errors.New("negotiator panicked")
	ErrInvalidProposal     = errors.New("proposal is outside the outcome space")
	ErrInvalidResponse     = errors.New("unknown response")
)
