package service

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/repo"
)

// stubRepo overrides only the queries the registration handlers reach;
// anything else panics through the embedded nil interface.
type stubRepo struct {
	repo.Repository

	event    *model.Event
	existing *model.Registration
	booked   *model.Registration
}

func (s *stubRepo) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	if s.event == nil {
		return nil, repo.ErrEventNotFound
	}
	return s.event, nil
}

func (s *stubRepo) GetRegistrationForViewer(ctx context.Context, eventID int64, userID *int64, guestEmail string) (*model.Registration, error) {
	return s.existing, nil
}

func (s *stubRepo) CountApprovedRegistrations(ctx context.Context, eventID int64) (int, error) {
	return 0, nil
}

func (s *stubRepo) BookRegistrationTx(ctx context.Context, reg *model.Registration) (int64, error) {
	s.booked = reg
	return 1, nil
}

func newTestService(r repo.Repository) Service {
	log := zerolog.Nop()
	return NewService(r, &log, nil, nil, 30)
}

func newTestContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx.Request = req
	ctx.Params = gin.Params{{Key: "id", Value: "1"}}
	return ctx, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testEvent(kind model.RegistrationKind, status model.EventStatus) *model.Event {
	ev := &model.Event{
		ID:               1,
		CommunityID:      1,
		Title:            "Go meetup",
		StartTime:        time.Now().Add(48 * time.Hour),
		EndTime:          time.Now().Add(50 * time.Hour),
		Kind:             model.KindInPerson,
		Address:          "Hauptstrasse 1, Berlin",
		RegistrationKind: kind,
		Status:           status,
	}
	if kind == model.RegistrationExternal {
		ev.ExternalPlatform = "meetup"
		ev.ExternalURL = "https://www.meetup.com/go-nights/events/1"
	}
	return ev
}

const guestBody = `{"guest_name":"Ada Guest","guest_email":"ada@example.com"}`

func TestSubscribeLifecycleGates(t *testing.T) {
	t.Run("draft event is not found", func(t *testing.T) {
		svc := newTestService(&stubRepo{event: testEvent(model.RegistrationExternal, model.StatusDraft)})
		ctx, w := newTestContext(guestBody)

		svc.Subscribe(ctx)

		if w.Code != 404 {
			t.Fatalf("got status %d, want 404", w.Code)
		}
		resp := decodeEnvelope(t, w)
		if resp.Error == nil || resp.Error.Code != dto.EventNotFound {
			t.Fatalf("got %+v, want error code %s", resp.Error, dto.EventNotFound)
		}
	})

	t.Run("cancelled event rejects subscription", func(t *testing.T) {
		svc := newTestService(&stubRepo{event: testEvent(model.RegistrationExternal, model.StatusCancelled)})
		ctx, w := newTestContext(guestBody)

		svc.Subscribe(ctx)

		if w.Code != 400 {
			t.Fatalf("got status %d, want 400", w.Code)
		}
		resp := decodeEnvelope(t, w)
		if resp.Error == nil || resp.Error.Code != dto.RegistrationClosed {
			t.Fatalf("got %+v, want error code %s", resp.Error, dto.RegistrationClosed)
		}
	})

	t.Run("published event accepts subscription", func(t *testing.T) {
		stub := &stubRepo{event: testEvent(model.RegistrationExternal, model.StatusPublished)}
		svc := newTestService(stub)
		ctx, w := newTestContext(guestBody)

		svc.Subscribe(ctx)

		if w.Code != 201 {
			t.Fatalf("got status %d, want 201: %s", w.Code, w.Body.String())
		}
		if stub.booked == nil || !stub.booked.Verified || stub.booked.ApprovalStatus != model.ApprovalApproved {
			t.Fatalf("subscription stored wrong: %+v", stub.booked)
		}
	})
}

func TestRegisterDraftEventNotFound(t *testing.T) {
	svc := newTestService(&stubRepo{event: testEvent(model.RegistrationNative, model.StatusDraft)})
	ctx, w := newTestContext(guestBody)

	svc.Register(ctx)

	if w.Code != 404 {
		t.Fatalf("got status %d, want 404", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != dto.EventNotFound {
		t.Fatalf("got %+v, want error code %s", resp.Error, dto.EventNotFound)
	}
}
