package bridge

import (
	"fmt"
	"strings"
)

// FailurePolicy - что делать, когда партия нарушила протокол
type FailurePolicy int

const (
	// Fallback: Reject и повтор последнего бида партии (или лучшего исхода по её ufun)
	Fallback FailurePolicy = iota
	// EndOnFailure: завершить переговоры
	EndOnFailure
	// Propagate: вернуть ошибку механизму
	Propagate
)

func (p FailurePolicy) String() string {
	switch p {
	case Fallback:
		return "fallback"
	case EndOnFailure:
		return "end"
	case Propagate:
		return "propagate"
	}
	return "unknown"
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fallback":
		return Fallback, nil
	case "end", "end_on_failure":
		return EndOnFailure, nil
	case "propagate":
		return Propagate, nil
	}
	return Fallback, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}
