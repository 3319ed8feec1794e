package eligibility

import (
	"testing"
	"time"

	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
)

var now = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func nativeEvent(mod ...func(*model.Event)) *model.Event {
	ev := &model.Event{
		ID:               1,
		Title:            "Go meetup",
		StartTime:        now.Add(48 * time.Hour),
		EndTime:          now.Add(50 * time.Hour),
		Kind:             model.KindInPerson,
		RegistrationKind: model.RegistrationNative,
		Status:           model.StatusPublished,
	}
	for _, m := range mod {
		m(ev)
	}
	return ev
}

func externalEvent(mod ...func(*model.Event)) *model.Event {
	return nativeEvent(append([]func(*model.Event){func(ev *model.Event) {
		ev.RegistrationKind = model.RegistrationExternal
		ev.ExternalPlatform = "meetup"
		ev.ExternalURL = "https://www.meetup.com/go-nights/events/1"
	}}, mod...)...)
}

func withCapacity(n int) func(*model.Event) {
	return func(ev *model.Event) { ev.Capacity = &n }
}

func withDeadline(t time.Time) func(*model.Event) {
	return func(ev *model.Event) { ev.Deadline = &t }
}

func registration(status model.ApprovalStatus) *model.Registration {
	uid := int64(7)
	return &model.Registration{ID: 42, EventID: 1, UserID: &uid, ApprovalStatus: status}
}

func TestEvaluatePriorityOrder(t *testing.T) {
	t.Parallel()

	t.Run("organizer always gets management", func(t *testing.T) {
		for _, role := range []model.Role{model.RoleOwner, model.RoleAdmin} {
			d := Evaluate(nativeEvent(), Input{ViewerRole: role, Now: now})
			if d.State != AdminManagement {
				t.Fatalf("role %s: got %s, want %s", role, d.State, AdminManagement)
			}
		}
	})

	t.Run("owner with own approved registration still gets management", func(t *testing.T) {
		d := Evaluate(nativeEvent(), Input{
			ViewerRole: model.RoleOwner,
			Existing:   registration(model.ApprovalApproved),
			Now:        now,
		})
		if d.State != AdminManagement {
			t.Fatalf("got %s, want %s", d.State, AdminManagement)
		}
	})

	t.Run("admin beats past and closed", func(t *testing.T) {
		ev := nativeEvent(func(ev *model.Event) { ev.StartTime = now.Add(-time.Hour) })
		d := Evaluate(ev, Input{ViewerRole: model.RoleAdmin, Now: now})
		if d.State != AdminManagement {
			t.Fatalf("got %s, want %s", d.State, AdminManagement)
		}
	})
}

func TestEvaluateExternal(t *testing.T) {
	t.Parallel()

	t.Run("upcoming shows subscribe", func(t *testing.T) {
		d := Evaluate(externalEvent(), Input{ViewerRole: model.RoleNone, Now: now})
		if d.State != ExternalSubscribe || d.AlreadySubscribed {
			t.Fatalf("got %+v, want fresh %s", d, ExternalSubscribe)
		}
	})

	t.Run("subscribed viewer sees already-subscribed", func(t *testing.T) {
		d := Evaluate(externalEvent(), Input{
			ViewerRole: model.RoleMember,
			Existing:   registration(model.ApprovalApproved),
			Now:        now,
		})
		if d.State != ExternalSubscribe || !d.AlreadySubscribed {
			t.Fatalf("got %+v, want already-subscribed %s", d, ExternalSubscribe)
		}
	})

	t.Run("past external is view only", func(t *testing.T) {
		ev := externalEvent(func(ev *model.Event) { ev.StartTime = now.Add(-time.Minute) })
		d := Evaluate(ev, Input{ViewerRole: model.RoleNone, Now: now})
		if d.State != ExternalPastView {
			t.Fatalf("got %s, want %s", d.State, ExternalPastView)
		}
	})

	t.Run("start time itself counts as past", func(t *testing.T) {
		ev := externalEvent(func(ev *model.Event) { ev.StartTime = now })
		d := Evaluate(ev, Input{ViewerRole: model.RoleNone, Now: now})
		if d.State != ExternalPastView {
			t.Fatalf("got %s, want %s", d.State, ExternalPastView)
		}
	})

	t.Run("unpublished external is view only", func(t *testing.T) {
		for _, st := range []model.EventStatus{model.StatusDraft, model.StatusCancelled} {
			ev := externalEvent(func(ev *model.Event) { ev.Status = st })
			d := Evaluate(ev, Input{ViewerRole: model.RoleNone, Now: now})
			if d.State != ExternalPastView {
				t.Fatalf("status %s: got %s, want %s", st, d.State, ExternalPastView)
			}
			if d.AlreadySubscribed {
				t.Fatalf("status %s: view-only state must not carry subscribe flags", st)
			}
		}
	})
}

func TestEvaluateNativeRegistered(t *testing.T) {
	t.Parallel()

	for _, status := range []model.ApprovalStatus{
		model.ApprovalApproved, model.ApprovalPending, model.ApprovalRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			d := Evaluate(nativeEvent(withCapacity(10)), Input{
				ViewerRole:        model.RoleMember,
				Existing:          registration(status),
				RegistrationCount: 4,
				Now:               now,
			})
			if d.State != NativeRegistered {
				t.Fatalf("got %s, want %s", d.State, NativeRegistered)
			}
			if d.ApprovalStatus != status {
				t.Fatalf("got approval %s, want %s", d.ApprovalStatus, status)
			}
			// Capacity readout only for approved attendees.
			if status == model.ApprovalApproved {
				if d.SpotsLeft == nil || *d.SpotsLeft != 6 {
					t.Fatalf("approved attendee must see spots left, got %v", d.SpotsLeft)
				}
			} else if d.SpotsLeft != nil {
				t.Fatalf("%s attendee must not see spots left, got %d", status, *d.SpotsLeft)
			}
		})
	}
}

func TestEvaluateNativeCanRegister(t *testing.T) {
	t.Parallel()

	t.Run("open event", func(t *testing.T) {
		d := Evaluate(nativeEvent(withCapacity(10)), Input{
			ViewerRole:        model.RoleNone,
			RegistrationCount: 3,
			Now:               now,
		})
		if d.State != NativeCanRegister {
			t.Fatalf("got %s, want %s", d.State, NativeCanRegister)
		}
		if d.RequiresAnswers {
			t.Fatal("event without questions must not require the answers step")
		}
		if d.SpotsLeft == nil || *d.SpotsLeft != 7 {
			t.Fatalf("expected 7 spots left, got %v", d.SpotsLeft)
		}
	})

	t.Run("custom questions force two-step flow", func(t *testing.T) {
		ev := nativeEvent(func(ev *model.Event) {
			ev.Questions = &questions.Schema{Phone: questions.PhoneField{Enabled: true}}
		})
		d := Evaluate(ev, Input{ViewerRole: model.RoleNone, Now: now})
		if d.State != NativeCanRegister || !d.RequiresAnswers {
			t.Fatalf("got %+v, want %s requiring answers", d, NativeCanRegister)
		}
	})
}

func TestCanRegister(t *testing.T) {
	t.Parallel()

	t.Run("full capacity blocks regardless of deadline", func(t *testing.T) {
		ev := nativeEvent(withCapacity(10), withDeadline(now.Add(24*time.Hour)))
		if CanRegister(ev, 10, now) {
			t.Fatal("capacity 10 with 10 approved registrations must block")
		}
	})

	t.Run("unlimited capacity ignores count", func(t *testing.T) {
		if !CanRegister(nativeEvent(), 100000, now) {
			t.Fatal("nil capacity must never block on count")
		}
	})

	t.Run("deadline is exclusive", func(t *testing.T) {
		ev := nativeEvent(withDeadline(now))
		if CanRegister(ev, 0, now) {
			t.Fatal("now == deadline must block")
		}
	})

	t.Run("deadline defaults to start time", func(t *testing.T) {
		ev := nativeEvent(func(ev *model.Event) { ev.StartTime = now })
		if CanRegister(ev, 0, now) {
			t.Fatal("event starting now must block without explicit deadline")
		}
	})

	t.Run("draft and cancelled block", func(t *testing.T) {
		for _, st := range []model.EventStatus{model.StatusDraft, model.StatusCancelled} {
			ev := nativeEvent(func(ev *model.Event) { ev.Status = st })
			if CanRegister(ev, 0, now) {
				t.Fatalf("status %s must block registration", st)
			}
		}
	})
}

func TestEvaluateNativeClosedReasons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ev   *model.Event
		in   Input
		want ClosedReason
	}{
		{
			name: "past beats full",
			ev: nativeEvent(withCapacity(5), func(ev *model.Event) {
				ev.StartTime = now.Add(-time.Hour)
			}),
			in:   Input{ViewerRole: model.RoleNone, RegistrationCount: 5, Now: now},
			want: ReasonPastEvent,
		},
		{
			name: "full beats deadline",
			ev:   nativeEvent(withCapacity(5), withDeadline(now.Add(-time.Minute))),
			in:   Input{ViewerRole: model.RoleNone, RegistrationCount: 5, Now: now},
			want: ReasonFull,
		},
		{
			name: "deadline passed",
			ev:   nativeEvent(withDeadline(now.Add(-time.Minute))),
			in:   Input{ViewerRole: model.RoleNone, Now: now},
			want: ReasonDeadlinePassed,
		},
		{
			name: "unpublished",
			ev:   nativeEvent(func(ev *model.Event) { ev.Status = model.StatusDraft }),
			in:   Input{ViewerRole: model.RoleNone, Now: now},
			want: ReasonNotPublished,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(tc.ev, tc.in)
			if d.State != NativeClosed {
				t.Fatalf("got %s, want %s", d.State, NativeClosed)
			}
			if d.ClosedReason != tc.want {
				t.Fatalf("got reason %s, want %s", d.ClosedReason, tc.want)
			}
		})
	}
}
