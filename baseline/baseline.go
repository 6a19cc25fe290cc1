// Package baseline remembers the violations accepted for each rule so that
// only new violations fail a run.
//
// Each rule's record moves through two states. When no record exists the
// current violations are written and the rule passes. Once a record exists,
// current violations are split into known and new; the record itself is
// never shrunk when known violations disappear. Only Freeze rewrites it.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/hexguard/rule"
)

// ErrNotFound is returned by a Store when a rule has no record.
var ErrNotFound = errors.New("baseline record not found")

// Record is the accepted violation set of one rule.
type Record struct {
	RuleID     string           `json:"rule_id"`
	FrozenAt   time.Time        `json:"frozen_at"`
	Violations []rule.Violation `json:"violations"`
}

// Store persists records keyed by rule ID. Implementations must allow
// concurrent calls for distinct rule IDs.
type Store interface {
	Load(ctx context.Context, ruleID string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

// State is the transition a check took.
type State string

const (
	// StateInitialized means no record existed and one was written.
	StateInitialized State = "initialized"
	// StateCompared means an existing record was used to filter violations.
	StateCompared State = "compared"
	// StateFrozen means the record was rewritten by an explicit freeze.
	StateFrozen State = "frozen"
)

// Outcome is the result of checking one rule's violations against its record.
type Outcome struct {
	RuleID string
	State  State
	New    []rule.Violation
	Known  []rule.Violation
}

// Baseline applies the freeze state machine on top of a Store.
type Baseline struct {
	store Store
	now   func() time.Time
}

// Option configures a Baseline.
type Option func(*Baseline)

// WithClock overrides the time source used for FrozenAt.
func WithClock(now func() time.Time) Option {
	return func(b *Baseline) { b.now = now }
}

// New returns a Baseline backed by store.
func New(store Store, opts ...Option) *Baseline {
	b := &Baseline{store: store, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Check filters current against the record of ruleID, initialising the
// record on first use.
func (b *Baseline) Check(ctx context.Context, ruleID string, current []rule.Violation) (Outcome, error) {
	rec, err := b.store.Load(ctx, ruleID)
	if errors.Is(err, ErrNotFound) {
		if err := b.Freeze(ctx, ruleID, current); err != nil {
			return Outcome{}, err
		}
		return Outcome{RuleID: ruleID, State: StateInitialized, Known: current}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load baseline %s: %w", ruleID, err)
	}

	accepted := make(map[string]struct{}, len(rec.Violations))
	for _, v := range rec.Violations {
		accepted[v.Signature()] = struct{}{}
	}

	out := Outcome{RuleID: ruleID, State: StateCompared}
	for _, v := range current {
		if _, ok := accepted[v.Signature()]; ok {
			out.Known = append(out.Known, v)
		} else {
			out.New = append(out.New, v)
		}
	}
	return out, nil
}

// Freeze replaces the record of ruleID with current.
func (b *Baseline) Freeze(ctx context.Context, ruleID string, current []rule.Violation) error {
	vs := append([]rule.Violation{}, current...)
	rule.SortViolations(vs)
	rec := &Record{RuleID: ruleID, FrozenAt: b.now().UTC(), Violations: vs}
	if err := b.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save baseline %s: %w", ruleID, err)
	}
	return nil
}
