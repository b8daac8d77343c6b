package domain

import "errors"

var (
	ErrEmptyOutcomeSpace = errors.New("outcome space has no issues")
	ErrEmptyIssue        = errors.New("issue has no values")
	ErrEmptyIssueName    = errors.New("issue name cannot be empty")
	ErrDuplicateIssue    = errors.New("duplicate issue name")
	ErrDuplicateValue    = errors.New("duplicate issue value")
	ErrUnknownIssue      = errors.New("unknown issue")
	ErrInvalidOutcome    = errors.New("outcome does not belong to outcome space")
)

var (
	ErrInvalidWeights     = errors.New("weights must be non-negative, one per issue")
	ErrInvalidValueTable  = errors.New("value utilities must cover every issue value")
	ErrNilUtilityFunction = errors.New("utility function is nil")
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrDuplicateSession   = errors.New("session already exists")
	ErrInvalidSessionID   = errors.New("session id cannot be empty")
	ErrInvalidStatus      = errors.New("invalid session status")
	ErrInvalidParticipant = errors.New("session needs at least two participants")
)
