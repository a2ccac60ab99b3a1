package live

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTiers is returned when no resolution tier applies to an entity kind.
var ErrNoTiers = errors.New("no resolution tier applies")

// TierFailure records why a single resolution tier did not produce a result.
type TierFailure struct {
	Tier string
	Err  error
}

// ResolutionError reports that every applicable tier failed for an entity.
//
// Callers treat it as "status unknown this cycle", never as "offline".
// Transport errors, timeouts, non-zero upstream codes and malformed payloads
// all collapse into this one type.
type ResolutionError struct {
	EntityID string
	Failures []TierFailure
}

func (e *ResolutionError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("resolve %s: %v", e.EntityID, ErrNoTiers)
	}

	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Tier, f.Err))
	}
	return fmt.Sprintf("resolve %s: all tiers failed (%s)", e.EntityID, strings.Join(parts, "; "))
}

// Unwrap exposes the per-tier errors to errors.Is and errors.As.
func (e *ResolutionError) Unwrap() []error {
	if len(e.Failures) == 0 {
		return []error{ErrNoTiers}
	}
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// DispatchError reports that the notification sink could not deliver an event.
type DispatchError struct {
	EventID string
	Sink    string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s via %s: %v", e.EventID, e.Sink, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
