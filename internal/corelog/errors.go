package corelog

import (
	"errors"
	"fmt"
)

// Sentinel errors the orchestrator is permitted to raise directly, per
// spec.md §7's propagation policy: individual upstream faults never
// surface as Go errors, only these programmer/configuration errors do.
var (
	ErrUnknownIntent   = errors.New("no routing rules for intent")
	ErrInvalidRegistry = errors.New("routing entry references an unknown or misconfigured API")
)

// OrchestratorError wraps a sentinel error with the operation and entity
// that triggered it, so callers get a precise, loggable message while
// errors.Is/As keeps working against the sentinels above.
type OrchestratorError struct {
	Op      string // e.g. "routing.ApisFor"
	Kind    string // e.g. "intent", "registry", "halt"
	ID      string // e.g. the intent name or session id
	Message string
	Err     error
}

func (e *OrchestratorError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *OrchestratorError) Unwrap() error { return e.Err }

func NewError(op, kind, id string, err error) *OrchestratorError {
	return &OrchestratorError{Op: op, Kind: kind, ID: id, Err: err}
}

// IsUnknownIntent reports whether err represents an unrouted intent.
func IsUnknownIntent(err error) bool {
	return errors.Is(err, ErrUnknownIntent)
}

// IsConfigurationError reports whether err represents a misconfigured
// registry or routing table, as opposed to a transient upstream fault.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidRegistry)
}
