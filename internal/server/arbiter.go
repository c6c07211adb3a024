package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"molequeue/internal/logging"
)

// Decision is the outcome of startup arbitration when the listening endpoint
// is already owned by another instance.
type Decision int

const (
	// KeepExistingAndExit leaves the running instance alone; the new process
	// exits without side effects.
	KeepExistingAndExit Decision = iota
	// ForceReplace terminates the existing instance and takes over its
	// endpoint.
	ForceReplace
)

// String returns a short label for the decision.
func (d Decision) String() string {
	switch d {
	case KeepExistingAndExit:
		return "keep-existing"
	case ForceReplace:
		return "force-replace"
	default:
		return "unknown"
	}
}

// Conflict describes a detected bind conflict.
type Conflict struct {
	SocketPath string
	LockPath   string
	PID        int
}

// ConflictPolicy decides how a bind conflict resolves. Implementations may
// consult the user, configuration, or anything else; the arbiter only acts
// on the returned decision.
type ConflictPolicy interface {
	Decide(ctx context.Context, conflict Conflict) (Decision, error)
}

// PolicyFunc adapts a function to the ConflictPolicy interface.
type PolicyFunc func(ctx context.Context, conflict Conflict) (Decision, error)

func (f PolicyFunc) Decide(ctx context.Context, conflict Conflict) (Decision, error) {
	return f(ctx, conflict)
}

// StaticPolicy always returns the given decision.
func StaticPolicy(decision Decision) ConflictPolicy {
	return PolicyFunc(func(context.Context, Conflict) (Decision, error) {
		return decision, nil
	})
}

// TimeoutPolicy bounds an inner policy's deliberation. When the inner policy
// does not answer in time, or fails, the safe decision is to keep the
// existing instance.
func TimeoutPolicy(inner ConflictPolicy, timeout time.Duration) ConflictPolicy {
	return PolicyFunc(func(ctx context.Context, conflict Conflict) (Decision, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		decision, err := inner.Decide(ctx, conflict)
		if err != nil {
			return KeepExistingAndExit, nil
		}
		return decision, nil
	})
}

// Arbiter resolves bind conflicts during daemon startup. It moves through
// three states: idle until a conflict is detected, conflict-detected while
// the policy deliberates, and resolved once a decision is recorded.
type Arbiter struct {
	policy ConflictPolicy
	logger *slog.Logger

	state    arbiterState
	decision Decision
}

type arbiterState int

const (
	stateIdle arbiterState = iota
	stateConflictDetected
	stateResolved
)

// NewArbiter constructs an arbiter with the given policy. A nil policy
// defaults to keeping the existing instance.
func NewArbiter(policy ConflictPolicy, logger *slog.Logger) *Arbiter {
	if policy == nil {
		policy = StaticPolicy(KeepExistingAndExit)
	}
	return &Arbiter{
		policy: policy,
		logger: logging.NewComponentLogger(logger, "arbiter"),
	}
}

// Resolve runs arbitration for a detected conflict and returns the decision.
// Resolve is a one-shot transition; a resolved arbiter refuses further
// conflicts.
func (a *Arbiter) Resolve(ctx context.Context, conflict Conflict) (Decision, error) {
	if a.state == stateResolved {
		return a.decision, errors.New("conflict already resolved")
	}
	a.state = stateConflictDetected
	a.logger.Warn("bind conflict detected",
		logging.String("socket", conflict.SocketPath),
		logging.Int("pid", conflict.PID))

	decision, err := a.policy.Decide(ctx, conflict)
	if err != nil {
		a.state = stateResolved
		a.decision = KeepExistingAndExit
		a.logger.Warn("conflict policy failed, keeping existing instance",
			logging.Error(err))
		return a.decision, nil
	}

	a.state = stateResolved
	a.decision = decision
	a.logger.Info("bind conflict resolved",
		logging.String("decision", decision.String()))
	return decision, nil
}

// Resolved reports whether arbitration already produced a decision.
func (a *Arbiter) Resolved() bool {
	return a.state == stateResolved
}
