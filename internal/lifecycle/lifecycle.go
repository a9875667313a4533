// Package lifecycle implements the task state machine.
//
// A task moves Pending -> InProgress -> Submitted -> Approved or
// Rejected. Both Approved and Rejected are terminal. Transitions are
// value objects applied to a task by the calendar store; each one
// checks authorization first, then state legality, then input
// validity, so an unauthorized caller always sees AuthorizationError
// regardless of the task's current state.
package lifecycle

import (
	"strings"

	"gracecal/internal/model"
)

// Authorizer resolves whether an identity holds the manager/leadership
// role. Role data lives outside the domain model; the state machine
// only ever asks this question.
type Authorizer interface {
	IsManager(identity string) bool
}

// Transition is a single requested state change.
type Transition interface {
	// Name identifies the transition in errors and logs.
	Name() string
	// Apply mutates the task in place or returns one of the model
	// error kinds. The store applies transitions to a copy, so a
	// partial mutation before an error is never observed.
	Apply(t *model.Task, auth Authorizer) error
}

// UpdateProgress sets the task's progress percentage and moves it to
// InProgress. Allowed from Pending or InProgress, by listed
// responsibles only. Corrections downward are permitted.
type UpdateProgress struct {
	Actor   string
	Percent int
}

func (UpdateProgress) Name() string { return "update progress" }

func (tr UpdateProgress) Apply(t *model.Task, auth Authorizer) error {
	if !t.IsResponsible(tr.Actor) {
		return &model.AuthorizationError{Actor: tr.Actor, Reason: "only listed responsibles may update progress"}
	}
	switch t.State {
	case model.StatePending, model.StateInProgress:
	default:
		return &model.InvalidStateError{State: t.State, Transition: tr.Name()}
	}
	if tr.Percent < 0 || tr.Percent > 100 {
		return &model.ValidationError{Reason: "progress must be between 0 and 100"}
	}
	t.Progress = tr.Percent
	t.State = model.StateInProgress
	return nil
}

// Submit hands the task over for review, recording the delivery link
// and the designated reviewing manager. Allowed from InProgress, by
// listed responsibles only.
type Submit struct {
	Actor    string
	Link     string
	Reviewer string
}

func (Submit) Name() string { return "submit" }

func (tr Submit) Apply(t *model.Task, auth Authorizer) error {
	if !t.IsResponsible(tr.Actor) {
		return &model.AuthorizationError{Actor: tr.Actor, Reason: "only listed responsibles may submit"}
	}
	if t.State != model.StateInProgress {
		return &model.InvalidStateError{State: t.State, Transition: tr.Name()}
	}
	link := strings.TrimSpace(tr.Link)
	if link == "" {
		return &model.ValidationError{Reason: "delivery link must not be empty"}
	}
	reviewer := strings.TrimSpace(tr.Reviewer)
	if reviewer == "" {
		return &model.ValidationError{Reason: "a reviewing manager must be named"}
	}
	if reviewer == tr.Actor {
		return &model.ValidationError{Reason: "submitter cannot review their own delivery"}
	}
	if !auth.IsManager(reviewer) {
		return &model.ValidationError{Reason: "named reviewer does not hold the manager role"}
	}
	t.DeliveryLink = link
	t.Reviewer = reviewer
	t.State = model.StateSubmitted
	return nil
}

// Review approves or rejects a submitted task. Managers only; when the
// task carries a pinned reviewer who still holds the manager role, only
// that identity may review. Approval forces progress to 100.
type Review struct {
	Actor   string
	Approve bool
}

func (Review) Name() string { return "review" }

func (tr Review) Apply(t *model.Task, auth Authorizer) error {
	if !auth.IsManager(tr.Actor) {
		return &model.AuthorizationError{Actor: tr.Actor, Reason: "only managers may review"}
	}
	if t.Reviewer != "" && auth.IsManager(t.Reviewer) && t.Reviewer != tr.Actor {
		return &model.AuthorizationError{Actor: tr.Actor, Reason: "task is pinned to reviewer " + t.Reviewer}
	}
	if t.State != model.StateSubmitted {
		return &model.InvalidStateError{State: t.State, Transition: tr.Name()}
	}
	if tr.Approve {
		t.State = model.StateApproved
		t.Progress = 100
	} else {
		t.State = model.StateRejected
	}
	return nil
}
