package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/livewatch/internal/metrics"
	"github.com/jpalmerr/livewatch/live"
)

// Outcome tags the result of a single tier attempt.
type Outcome int

const (
	// OutcomeSuccess means the tier produced a trustworthy reading.
	OutcomeSuccess Outcome = iota

	// OutcomeRetry means the tier failed and the next tier should be tried.
	OutcomeRetry

	// OutcomeTerminal means resolution must stop without trying further tiers.
	OutcomeTerminal
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return metrics.OutcomeSuccess
	case OutcomeRetry:
		return metrics.OutcomeRetry
	default:
		return metrics.OutcomeFatal
	}
}

// Result is the tagged outcome of one tier attempt.
type Result struct {
	Outcome Outcome
	Info    live.Info
	Err     error
}

// Success wraps info as a successful result.
func Success(info live.Info) Result {
	return Result{Outcome: OutcomeSuccess, Info: info}
}

// Retry wraps err as a result that lets the next tier run.
func Retry(err error) Result {
	return Result{Outcome: OutcomeRetry, Err: err}
}

// Terminal wraps err as a result that stops the chain.
func Terminal(err error) Result {
	return Result{Outcome: OutcomeTerminal, Err: err}
}

// Failed classifies err: terminal once ctx is done, retry otherwise.
func Failed(ctx context.Context, err error) Result {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Terminal(fmt.Errorf("%w (%v)", ctxErr, err))
	}
	return Retry(err)
}

// Tier is one candidate strategy in the resolution chain.
type Tier interface {
	// Name identifies the tier in logs, errors and metrics.
	Name() string

	// Applies reports whether the tier can resolve ids of the given kind.
	Applies(kind live.IDKind) bool

	// Resolve attempts a reading for id.
	Resolve(ctx context.Context, id string) Result
}

// Resolver resolves entities through an ordered list of tiers.
// It holds no state between calls and is safe for concurrent use.
type Resolver struct {
	tiers    []Tier
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a [Resolver] that tries tiers in the given order.
// A nil logger uses slog.Default(); a nil recorder records nothing.
func New(tiers []Tier, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tiers:    tiers,
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
	}
}

// Tiers returns the names of the configured tiers, in order.
func (r *Resolver) Tiers() []string {
	names := make([]string, len(r.tiers))
	for i, t := range r.tiers {
		names[i] = t.Name()
	}
	return names
}

// Resolve returns the live status of e from the first tier that succeeds.
//
// The returned error, when non-nil, is always a *live.ResolutionError
// carrying one failure per attempted tier.
func (r *Resolver) Resolve(ctx context.Context, e live.Entity) (live.Info, error) {
	resErr := &live.ResolutionError{EntityID: e.ID}

	for _, tier := range r.tiers {
		if !tier.Applies(e.Kind) {
			continue
		}

		start := time.Now()
		res := r.attempt(ctx, tier, e.ID)
		r.recorder.ObserveTier(tier.Name(), res.Outcome.String(), time.Since(start))

		switch res.Outcome {
		case OutcomeSuccess:
			if len(resErr.Failures) > 0 {
				r.logger.Debug("resolved after fallback",
					"entity", e.ID,
					"tier", tier.Name(),
					"failed_tiers", len(resErr.Failures),
				)
			}
			return res.Info, nil

		case OutcomeTerminal:
			resErr.Failures = append(resErr.Failures, live.TierFailure{Tier: tier.Name(), Err: res.Err})
			return live.Info{}, resErr

		default:
			resErr.Failures = append(resErr.Failures, live.TierFailure{Tier: tier.Name(), Err: res.Err})
			r.logger.Debug("tier failed, trying next",
				"entity", e.ID,
				"tier", tier.Name(),
				"error", res.Err,
			)
		}
	}

	return live.Info{}, resErr
}

// attempt runs a single tier with panic recovery. A panicking tier is
// reported as a retry so the rest of the chain still runs.
func (r *Resolver) attempt(ctx context.Context, tier Tier, id string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			correlationID := uuid.NewString()
			r.logger.Error("resolution tier panic",
				"correlation_id", correlationID,
				"tier", tier.Name(),
				"entity", id,
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)
			res = Retry(fmt.Errorf("tier panic (correlation_id: %s)", correlationID))
		}
	}()
	return tier.Resolve(ctx, id)
}
