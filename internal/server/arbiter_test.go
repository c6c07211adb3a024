package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"molequeue/internal/logging"
)

func TestArbiterAppliesPolicyDecision(t *testing.T) {
	arbiter := NewArbiter(StaticPolicy(ForceReplace), logging.NewNop())

	decision, err := arbiter.Resolve(context.Background(), Conflict{SocketPath: "/tmp/mq.sock", PID: 123})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision != ForceReplace {
		t.Fatalf("decision = %v, want ForceReplace", decision)
	}
	if !arbiter.Resolved() {
		t.Fatal("expected arbiter to report resolved")
	}
}

func TestArbiterPolicyErrorKeepsExisting(t *testing.T) {
	failing := PolicyFunc(func(context.Context, Conflict) (Decision, error) {
		return ForceReplace, errors.New("prompt unavailable")
	})
	arbiter := NewArbiter(failing, logging.NewNop())

	decision, err := arbiter.Resolve(context.Background(), Conflict{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision != KeepExistingAndExit {
		t.Fatalf("decision = %v, want KeepExistingAndExit", decision)
	}
}

func TestArbiterIsOneShot(t *testing.T) {
	arbiter := NewArbiter(StaticPolicy(ForceReplace), logging.NewNop())

	if _, err := arbiter.Resolve(context.Background(), Conflict{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := arbiter.Resolve(context.Background(), Conflict{}); err == nil {
		t.Fatal("expected second Resolve to fail")
	}
}

func TestNilPolicyKeepsExisting(t *testing.T) {
	arbiter := NewArbiter(nil, logging.NewNop())

	decision, err := arbiter.Resolve(context.Background(), Conflict{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision != KeepExistingAndExit {
		t.Fatalf("decision = %v, want KeepExistingAndExit", decision)
	}
}

func TestTimeoutPolicyFallsBackToKeepExisting(t *testing.T) {
	slow := PolicyFunc(func(ctx context.Context, _ Conflict) (Decision, error) {
		select {
		case <-ctx.Done():
			return KeepExistingAndExit, ctx.Err()
		case <-time.After(5 * time.Second):
			return ForceReplace, nil
		}
	})
	policy := TimeoutPolicy(slow, 20*time.Millisecond)

	decision, err := policy.Decide(context.Background(), Conflict{})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision != KeepExistingAndExit {
		t.Fatalf("decision = %v, want KeepExistingAndExit", decision)
	}
}

func TestTimeoutPolicyPassesThroughFastDecision(t *testing.T) {
	policy := TimeoutPolicy(StaticPolicy(ForceReplace), time.Second)

	decision, err := policy.Decide(context.Background(), Conflict{})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision != ForceReplace {
		t.Fatalf("decision = %v, want ForceReplace", decision)
	}
}
