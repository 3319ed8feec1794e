package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/eligibility"
	"github.com/Luhive/luhive-mvp-sub000/internal/mailer"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/rabbit"
	"github.com/Luhive/luhive-mvp-sub000/internal/repo"
)

type Service interface {
	CreateCommunity(ctx *ginext.Context)
	GetCommunity(ctx *ginext.Context)
	GetDashboard(ctx *ginext.Context)

	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	PublishEvent(ctx *ginext.Context)
	UnpublishEvent(ctx *ginext.Context)
	CancelEvent(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)

	Register(ctx *ginext.Context)
	Unregister(ctx *ginext.Context)
	Subscribe(ctx *ginext.Context)
	VerifyRegistration(ctx *ginext.Context)
	ReviewRegistration(ctx *ginext.Context)
	GetAttendees(ctx *ginext.Context)
}

type service struct {
	repo repo.Repository
	log  *zerolog.Logger
	rbt  *rabbit.Client
	mail *mailer.Mailer

	// verificationTimeoutMinutes bounds how long an anonymous registration
	// may stay unverified before the worker removes it.
	verificationTimeoutMinutes int
}

func NewService(repo repo.Repository, logger *zerolog.Logger, rbt *rabbit.Client, mail *mailer.Mailer, verificationTimeoutMinutes int) Service {
	return &service{
		repo:                       repo,
		log:                        logger,
		rbt:                        rbt,
		mail:                       mail,
		verificationTimeoutMinutes: verificationTimeoutMinutes,
	}
}

// viewerID extracts the authenticated user id set by the upstream gateway.
// A missing header means an anonymous visitor, not an error.
func viewerID(ctx *ginext.Context) *int64 {
	raw := ctx.GetHeader("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (s *service) viewerRole(ctx context.Context, communityID int64, userID *int64) (model.Role, error) {
	if userID == nil {
		return model.RoleNone, nil
	}
	return s.repo.GetViewerRole(ctx, communityID, *userID)
}

func parseIDParam(ctx *ginext.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

func eventIDParam(ctx *ginext.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return 0, false
	}
	return id, true
}

func eventResponse(e *model.Event, decision *eligibility.Decision) dto.EventResponse {
	return dto.EventResponse{
		ID:               e.ID,
		CommunityID:      e.CommunityID,
		Title:            e.Title,
		Description:      e.Description,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Timezone:         e.Timezone,
		Kind:             e.Kind,
		Address:          e.Address,
		MeetingURL:       e.MeetingURL,
		Capacity:         e.Capacity,
		Deadline:         e.Deadline,
		ApprovalRequired: e.ApprovalRequired,
		Questions:        e.Questions,
		RegistrationKind: e.RegistrationKind,
		ExternalPlatform: e.ExternalPlatform,
		ExternalURL:      e.ExternalURL,
		Status:           e.Status,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		Viewer:           decision,
	}
}

func registrationResponse(r *model.Registration) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		ID:             r.ID,
		EventID:        r.EventID,
		UserID:         r.UserID,
		GuestName:      r.GuestName,
		GuestEmail:     r.GuestEmail,
		RSVPStatus:     r.RSVPStatus,
		Verified:       r.Verified,
		ApprovalStatus: r.ApprovalStatus,
		Answers:        r.Answers,
		CreatedAt:      r.CreatedAt,
	}
}
