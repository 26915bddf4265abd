package agreement

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle position of an agreement.
type Status string

const (
	StatusWaitingSignatures Status = "waiting_signatures"
	StatusActive            Status = "active"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	// StatusArchived and StatusDraft are reserved. No transition reaches them.
	StatusArchived Status = "archived"
	StatusDraft    Status = "draft"
)

// Valid reports whether s is a known status, reserved ones included.
func (s Status) Valid() bool {
	switch s {
	case StatusWaitingSignatures, StatusActive, StatusCompleted, StatusFailed, StatusArchived, StatusDraft:
		return true
	default:
		return false
	}
}

// Terminal reports whether no lifecycle transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionRatify   Transition = "ratify"
	TransitionComplete Transition = "complete"
	TransitionFail     Transition = "fail"
	TransitionExtend   Transition = "extend"
)

var transitions = map[Status]map[Transition]Status{
	StatusWaitingSignatures: {
		TransitionRatify: StatusActive,
	},
	StatusActive: {
		TransitionComplete: StatusCompleted,
		TransitionFail:     StatusFailed,
		TransitionExtend:   StatusActive,
	},
}

// Next returns the status reached by applying t in from.
func Next(from Status, t Transition) (Status, error) {
	to, ok := transitions[from][t]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, t, from)
	}
	return to, nil
}

// Outcome selects how an active agreement is closed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

func (o Outcome) transition() (Transition, Flow, error) {
	switch o {
	case OutcomeSuccess:
		return TransitionComplete, FlowCloseSuccess, nil
	case OutcomeFailure:
		return TransitionFail, FlowCloseFailure, nil
	default:
		return "", "", fmt.Errorf("%w: unknown outcome %q", ErrValidation, o)
	}
}

// ClosurePolicy decides how many closure signatures a Complete or Fail needs.
type ClosurePolicy string

const (
	// ClosureAnySubset accepts whatever closure signatures were captured, none included.
	ClosureAnySubset ClosurePolicy = "any"
	// ClosureAllSigned applies the ratification gate to closures too.
	ClosureAllSigned ClosurePolicy = "all"
)

// ParseClosurePolicy maps a configuration value onto a policy. Empty means ClosureAnySubset.
func ParseClosurePolicy(raw string) (ClosurePolicy, error) {
	switch ClosurePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ClosureAnySubset:
		return ClosureAnySubset, nil
	case ClosureAllSigned:
		return ClosureAllSigned, nil
	default:
		return "", fmt.Errorf("agreement: unknown closure policy %q", raw)
	}
}

// Patch is the subset of agreement columns written by one transition. Nil
// fields are left untouched. ExpectStatus guards the write against a
// concurrent transition that already moved the row.
type Patch struct {
	ExpectStatus     Status
	Status           *Status
	Validity         *string
	NegotiationCount *int
	CreatorSignature *SignatureImage
	PartnerSignature *SignatureImage
	Ratification     SignatureMap
	Closure          SignatureMap
	SignedAt         *time.Time
	CompletedAt      *time.Time
}

// Waiting is an agreement known to be in waiting_signatures. Only Ratify is
// defined on it.
type Waiting struct {
	agreement Agreement
}

// Active is an agreement known to be active. Close and Extend are defined on it.
type Active struct {
	agreement Agreement
}

// AsWaiting narrows a to the waiting view.
func (a Agreement) AsWaiting() (Waiting, error) {
	if a.Status != StatusWaitingSignatures {
		return Waiting{}, fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, a.ID, a.Status, StatusWaitingSignatures)
	}
	return Waiting{agreement: a}, nil
}

// AsActive narrows a to the active view.
func (a Agreement) AsActive() (Active, error) {
	if a.Status != StatusActive {
		return Active{}, fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, a.ID, a.Status, StatusActive)
	}
	return Active{agreement: a}, nil
}

// Ratify builds the patch that activates the agreement. Every participant
// must have a captured signature; otherwise nothing is produced.
func (w Waiting) Ratify(sigs *Collector, now time.Time) (Patch, error) {
	a := w.agreement
	if len(a.Participants) == 0 {
		return Patch{}, fmt.Errorf("%w: %s has no participants", ErrIncompleteSignatures, a.ID)
	}
	if err := sigs.expect(FlowRatify, a.Participants); err != nil {
		return Patch{}, err
	}
	if missing := sigs.Missing(); len(missing) > 0 {
		return Patch{}, fmt.Errorf("%w: missing %s", ErrIncompleteSignatures, strings.Join(missing, ", "))
	}

	next, err := Next(a.Status, TransitionRatify)
	if err != nil {
		return Patch{}, err
	}

	captured := sigs.Snapshot()
	patch := Patch{
		ExpectStatus: a.Status,
		Status:       &next,
		Ratification: captured,
		SignedAt:     &now,
	}
	creator := captured[a.Participants[0].ID]
	patch.CreatorSignature = &creator
	if len(a.Participants) > 1 {
		partner := captured[a.Participants[1].ID]
		patch.PartnerSignature = &partner
	}
	return patch, nil
}

// Close builds the patch that ends the agreement with the given outcome.
func (ac Active) Close(outcome Outcome, sigs *Collector, policy ClosurePolicy, now time.Time) (Patch, error) {
	a := ac.agreement
	t, flow, err := outcome.transition()
	if err != nil {
		return Patch{}, err
	}
	if err := sigs.expect(flow, a.Participants); err != nil {
		return Patch{}, err
	}
	if policy == ClosureAllSigned {
		if missing := sigs.Missing(); len(missing) > 0 {
			return Patch{}, fmt.Errorf("%w: missing %s", ErrIncompleteSignatures, strings.Join(missing, ", "))
		}
	}

	next, err := Next(a.Status, t)
	if err != nil {
		return Patch{}, err
	}
	return Patch{
		ExpectStatus: a.Status,
		Status:       &next,
		Closure:      sigs.Snapshot(),
		CompletedAt:  &now,
	}, nil
}

// Extend builds the read-modify-write patch for a renewal. The atomic path
// does not use it; see LifecycleService.Extend.
func (ac Active) Extend(validity string) (Patch, error) {
	a := ac.agreement
	validity = strings.TrimSpace(validity)
	if validity == "" {
		return Patch{}, ErrEmptyValidity
	}
	if _, err := Next(a.Status, TransitionExtend); err != nil {
		return Patch{}, err
	}
	count := a.NegotiationCount + 1
	return Patch{
		ExpectStatus:     a.Status,
		Validity:         &validity,
		NegotiationCount: &count,
	}, nil
}

// Agreement returns the underlying record.
func (ac Active) Agreement() Agreement { return ac.agreement }

// Agreement returns the underlying record.
func (w Waiting) Agreement() Agreement { return w.agreement }
