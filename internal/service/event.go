package service

import (
	"fmt"
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/eligibility"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
	"github.com/Luhive/luhive-mvp-sub000/pkg/validator"
)

func bindEventPayload(ctx *ginext.Context, s *service) (*dto.EventPayload, bool) {
	var req dto.EventPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse event payload")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return nil, false
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return nil, false
	}
	return &req, true
}

// applyEventPayload validates the cross-field rules the struct tags cannot
// express and copies the payload onto the event. Returns a user-facing
// message on failure.
func applyEventPayload(e *model.Event, req *dto.EventPayload) string {
	switch req.Kind {
	case model.KindInPerson:
		if req.Address == "" {
			return "An address is required for in-person events"
		}
	case model.KindOnline, model.KindHybrid:
		if req.MeetingURL == "" {
			return "A meeting link is required for online and hybrid events"
		}
	}

	if req.Capacity != nil && *req.Capacity <= 0 {
		return "Capacity must be a positive number"
	}
	if req.Deadline != nil && req.Deadline.After(req.StartTime) {
		return "Registration deadline cannot be after the event start"
	}
	if !req.EndTime.IsZero() && req.EndTime.Before(req.StartTime) {
		return "End time cannot be before start time"
	}

	if req.RegistrationKind == model.RegistrationExternal {
		if req.ExternalURL == "" {
			return "An external registration URL is required for external events"
		}
		// Capacity, approval and custom questions are meaningless for
		// external events and are dropped rather than stored.
		req.Capacity = nil
		req.ApprovalRequired = false
		req.Questions = nil
	} else {
		req.ExternalPlatform = ""
		req.ExternalURL = ""
		if err := questions.ValidateSchema(req.Questions); err != nil {
			return fmt.Sprintf("Invalid custom questions: %v", err)
		}
	}

	e.Title = req.Title
	e.Description = req.Description
	e.StartTime = req.StartTime
	e.EndTime = req.EndTime
	e.Timezone = req.Timezone
	e.Kind = req.Kind
	e.Address = req.Address
	e.MeetingURL = req.MeetingURL
	e.Capacity = req.Capacity
	e.Deadline = req.Deadline
	e.ApprovalRequired = req.ApprovalRequired
	e.Questions = questions.Normalize(req.Questions)
	e.RegistrationKind = req.RegistrationKind
	e.ExternalPlatform = req.ExternalPlatform
	e.ExternalURL = req.ExternalURL
	return ""
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	community, err := s.repo.GetCommunityBySlug(ctx, ctx.Param("slug"))
	if err != nil {
		dto.CommunityNotFoundError(ctx)
		return
	}

	userID := viewerID(ctx)
	role, err := s.viewerRole(ctx, community.ID, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve viewer role")
		dto.InternalServerError(ctx)
		return
	}
	if !role.IsOrganizer() {
		dto.ForbiddenError(ctx)
		return
	}

	req, ok := bindEventPayload(ctx, s)
	if !ok {
		return
	}

	event := &model.Event{
		CommunityID: community.ID,
		Status:      model.StatusDraft,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if msg := applyEventPayload(event, req); msg != "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, msg)
		return
	}

	id, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	event.ID = id
	s.log.Info().Int64("event_id", id).Msg("event created successfully")

	dto.SuccessCreatedResponse(ctx, eventResponse(event, nil))
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	event, ok := s.loadEventAsOrganizer(ctx, eventID)
	if !ok {
		return
	}

	if event.Status == model.StatusCancelled {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Cancelled events cannot be edited")
		return
	}

	req, ok := bindEventPayload(ctx, s)
	if !ok {
		return
	}

	if msg := applyEventPayload(event, req); msg != "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, msg)
		return
	}

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		s.log.Error().Err(err).Msg("failed to update event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", event.ID).Msg("event updated successfully")
	dto.SuccessResponse(ctx, eventResponse(event, nil))
}

func (s *service) PublishEvent(ctx *ginext.Context) {
	s.transitionEvent(ctx, model.StatusPublished)
}

func (s *service) UnpublishEvent(ctx *ginext.Context) {
	s.transitionEvent(ctx, model.StatusDraft)
}

func (s *service) CancelEvent(ctx *ginext.Context) {
	s.transitionEvent(ctx, model.StatusCancelled)
}

// transitionEvent moves an event between draft and published, or to the
// terminal cancelled state.
func (s *service) transitionEvent(ctx *ginext.Context, target model.EventStatus) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	event, ok := s.loadEventAsOrganizer(ctx, eventID)
	if !ok {
		return
	}

	if event.Status == model.StatusCancelled {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Cancelled events cannot change status")
		return
	}
	if event.Status == target {
		dto.SuccessResponse(ctx, eventResponse(event, nil))
		return
	}

	if err := s.repo.UpdateEventStatus(ctx, event.ID, target); err != nil {
		s.log.Error().Err(err).Msg("failed to update event status")
		dto.InternalServerError(ctx)
		return
	}

	event.Status = target
	s.log.Info().Int64("event_id", event.ID).Str("status", string(target)).Msg("event status changed")
	dto.SuccessResponse(ctx, eventResponse(event, nil))
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}

	userID := viewerID(ctx)
	role, err := s.viewerRole(ctx, event.CommunityID, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve viewer role")
		dto.InternalServerError(ctx)
		return
	}

	// Drafts are only visible to organizers.
	if event.Status == model.StatusDraft && !role.IsOrganizer() {
		dto.EventNotFoundError(ctx)
		return
	}

	// Anonymous visitors can identify themselves by email to see their own
	// registration state.
	guestEmail := ctx.Query("guest_email")

	existing, err := s.repo.GetRegistrationForViewer(ctx, event.ID, userID, guestEmail)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load viewer registration")
		dto.InternalServerError(ctx)
		return
	}

	count, err := s.repo.CountApprovedRegistrations(ctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count registrations")
		dto.InternalServerError(ctx)
		return
	}

	decision := eligibility.Evaluate(event, eligibility.Input{
		ViewerRole:        role,
		Existing:          existing,
		RegistrationCount: count,
		Now:               time.Now(),
	})

	dto.SuccessResponse(ctx, eventResponse(event, &decision))
}

// loadEventAsOrganizer loads the event and verifies the viewer manages its
// community. Writes the error response itself on failure.
func (s *service) loadEventAsOrganizer(ctx *ginext.Context, eventID int64) (*model.Event, bool) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return nil, false
	}

	userID := viewerID(ctx)
	role, err := s.viewerRole(ctx, event.CommunityID, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve viewer role")
		dto.InternalServerError(ctx)
		return nil, false
	}
	if !role.IsOrganizer() {
		dto.ForbiddenError(ctx)
		return nil, false
	}
	return event, true
}
