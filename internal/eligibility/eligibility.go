// Package eligibility decides which registration view a visitor gets for an
// event. It is a pure selector over {event, viewer, approved count, now}: the
// handlers compute a Decision once per request and both the rendered payload
// and the permitted mutation follow from it, so there is no ad hoc flag
// juggling spread across the service layer.
package eligibility

import (
	"time"

	"github.com/Luhive/luhive-mvp-sub000/internal/model"
)

type State string

const (
	// AdminManagement wins over every other state, including the viewer's
	// own registration: management access is a superset of attending.
	AdminManagement   State = "admin_management"
	ExternalPastView  State = "external_past_view"
	ExternalSubscribe State = "external_subscribe"
	NativeRegistered  State = "native_registered"
	NativeCanRegister State = "native_can_register"
	NativeClosed      State = "native_closed"
)

// ClosedReason explains a NativeClosed decision to the viewer. All reasons
// block registration identically; the priority order only picks the wording.
type ClosedReason string

const (
	ReasonPastEvent      ClosedReason = "past_event"
	ReasonFull           ClosedReason = "full"
	ReasonDeadlinePassed ClosedReason = "deadline_passed"
	ReasonNotPublished   ClosedReason = "not_published"
)

// Input is the viewer context the evaluator needs. RegistrationCount must be
// the approved-only count; the evaluator does not filter by approval status
// itself.
type Input struct {
	ViewerRole        model.Role
	Existing          *model.Registration
	RegistrationCount int
	Now               time.Time
}

// Decision is the single serializable view-state value the UI renders.
type Decision struct {
	State State `json:"state"`

	// AlreadySubscribed qualifies ExternalSubscribe.
	AlreadySubscribed bool `json:"already_subscribed,omitempty"`

	// ApprovalStatus qualifies NativeRegistered.
	ApprovalStatus model.ApprovalStatus `json:"approval_status,omitempty"`

	// RequiresAnswers qualifies NativeCanRegister: the event has custom
	// questions, so registration is a two-step collect-then-submit flow.
	RequiresAnswers bool `json:"requires_answers,omitempty"`

	// ClosedReason qualifies NativeClosed.
	ClosedReason ClosedReason `json:"closed_reason,omitempty"`

	// SpotsLeft is set when the event has a capacity and the viewer is
	// entitled to the readout (organizers, approved attendees, and anyone
	// still able to register). Nil means unlimited or withheld.
	SpotsLeft *int `json:"spots_left,omitempty"`
}

// Evaluate selects exactly one presentation state. The priority order is
// fixed; the first matching rule wins.
func Evaluate(ev *model.Event, in Input) Decision {
	past := ev.IsPast(in.Now)

	if in.ViewerRole.IsOrganizer() {
		return Decision{State: AdminManagement, SpotsLeft: spotsLeft(ev, in.RegistrationCount)}
	}

	if ev.RegistrationKind == model.RegistrationExternal {
		// Cancelled is terminal and drafts are not open yet; both fall back
		// to the view-only state alongside past events.
		if past || ev.Status != model.StatusPublished {
			return Decision{State: ExternalPastView}
		}
		return Decision{State: ExternalSubscribe, AlreadySubscribed: in.Existing != nil}
	}

	if in.Existing != nil {
		d := Decision{State: NativeRegistered, ApprovalStatus: in.Existing.ApprovalStatus}
		if in.Existing.ApprovalStatus == model.ApprovalApproved {
			d.SpotsLeft = spotsLeft(ev, in.RegistrationCount)
		}
		return d
	}

	if CanRegister(ev, in.RegistrationCount, in.Now) {
		return Decision{
			State:           NativeCanRegister,
			RequiresAnswers: ev.Questions.HasQuestions(),
			SpotsLeft:       spotsLeft(ev, in.RegistrationCount),
		}
	}

	return Decision{State: NativeClosed, ClosedReason: closedReason(ev, in.RegistrationCount, in.Now)}
}

// CanRegister reports whether a new native registration is currently
// possible: the event is published, the effective deadline has not passed,
// and capacity (when bounded) has room.
func CanRegister(ev *model.Event, count int, now time.Time) bool {
	if ev.Status != model.StatusPublished {
		return false
	}
	if !now.Before(ev.EffectiveDeadline()) {
		return false
	}
	if ev.Capacity != nil && count >= *ev.Capacity {
		return false
	}
	return true
}

// closedReason picks the message shown for a closed event. Checked in
// priority order: past event, then full, then deadline.
func closedReason(ev *model.Event, count int, now time.Time) ClosedReason {
	if ev.IsPast(now) {
		return ReasonPastEvent
	}
	if ev.Capacity != nil && count >= *ev.Capacity {
		return ReasonFull
	}
	if !now.Before(ev.EffectiveDeadline()) {
		return ReasonDeadlinePassed
	}
	return ReasonNotPublished
}

func spotsLeft(ev *model.Event, count int) *int {
	if ev.Capacity == nil {
		return nil
	}
	left := *ev.Capacity - count
	if left < 0 {
		left = 0
	}
	return &left
}
