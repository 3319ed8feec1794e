package service

import (
	"testing"
	"time"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
)

func basePayload() dto.EventPayload {
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	return dto.EventPayload{
		Title:            "Community meetup",
		StartTime:        start,
		EndTime:          start.Add(2 * time.Hour),
		Timezone:         "Europe/Berlin",
		Kind:             model.KindInPerson,
		Address:          "Hauptstrasse 1, Berlin",
		RegistrationKind: model.RegistrationNative,
	}
}

func TestApplyEventPayload(t *testing.T) {
	t.Parallel()

	t.Run("valid in-person payload", func(t *testing.T) {
		req := basePayload()
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg != "" {
			t.Fatalf("unexpected validation message: %s", msg)
		}
		if e.Title != req.Title || e.Kind != model.KindInPerson {
			t.Fatalf("payload not copied: %+v", e)
		}
	})

	t.Run("in-person requires address", func(t *testing.T) {
		req := basePayload()
		req.Address = ""
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg == "" {
			t.Fatal("expected a validation message for missing address")
		}
	})

	t.Run("online requires meeting link", func(t *testing.T) {
		req := basePayload()
		req.Kind = model.KindOnline
		req.Address = ""
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg == "" {
			t.Fatal("expected a validation message for missing meeting link")
		}
		req.MeetingURL = "https://meet.example.com/abc"
		if msg := applyEventPayload(&e, &req); msg != "" {
			t.Fatalf("unexpected validation message: %s", msg)
		}
	})

	t.Run("capacity must be positive", func(t *testing.T) {
		req := basePayload()
		zero := 0
		req.Capacity = &zero
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg == "" {
			t.Fatal("expected a validation message for non-positive capacity")
		}
	})

	t.Run("deadline after start rejected", func(t *testing.T) {
		req := basePayload()
		late := req.StartTime.Add(time.Hour)
		req.Deadline = &late
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg == "" {
			t.Fatal("expected a validation message for late deadline")
		}
	})

	t.Run("deadline equal to start allowed", func(t *testing.T) {
		req := basePayload()
		atStart := req.StartTime
		req.Deadline = &atStart
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg != "" {
			t.Fatalf("unexpected validation message: %s", msg)
		}
	})

	t.Run("external event drops native-only fields", func(t *testing.T) {
		req := basePayload()
		req.RegistrationKind = model.RegistrationExternal
		req.ExternalPlatform = "meetup"
		req.ExternalURL = "https://www.meetup.com/x/events/1"
		cap := 50
		req.Capacity = &cap
		req.ApprovalRequired = true
		req.Questions = &questions.Schema{Phone: questions.PhoneField{Enabled: true}}

		var e model.Event
		if msg := applyEventPayload(&e, &req); msg != "" {
			t.Fatalf("unexpected validation message: %s", msg)
		}
		if e.Capacity != nil || e.ApprovalRequired || e.Questions != nil {
			t.Fatalf("external event must not keep capacity/approval/questions: %+v", e)
		}
	})

	t.Run("external event requires url", func(t *testing.T) {
		req := basePayload()
		req.RegistrationKind = model.RegistrationExternal
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg == "" {
			t.Fatal("expected a validation message for missing external url")
		}
	})

	t.Run("native event drops external fields and normalizes empty schema", func(t *testing.T) {
		req := basePayload()
		req.ExternalPlatform = "meetup"
		req.ExternalURL = "https://www.meetup.com/x"
		req.Questions = &questions.Schema{}

		var e model.Event
		if msg := applyEventPayload(&e, &req); msg != "" {
			t.Fatalf("unexpected validation message: %s", msg)
		}
		if e.ExternalPlatform != "" || e.ExternalURL != "" {
			t.Fatalf("native event must not keep external fields: %+v", e)
		}
		if e.Questions != nil {
			t.Fatalf("empty schema must normalize to nil, got %+v", e.Questions)
		}
	})

	t.Run("bad custom questions rejected", func(t *testing.T) {
		req := basePayload()
		req.Questions = &questions.Schema{Custom: []questions.Question{{ID: "a", Label: "??", Order: 0}}}
		var e model.Event
		if msg := applyEventPayload(&e, &req); msg == "" {
			t.Fatal("expected a validation message for bad question label")
		}
	})
}
