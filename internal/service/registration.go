package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/eligibility"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
	"github.com/Luhive/luhive-mvp-sub000/internal/repo"
	"github.com/Luhive/luhive-mvp-sub000/pkg/validator"
)

func closedReasonMessage(reason eligibility.ClosedReason) string {
	switch reason {
	case eligibility.ReasonPastEvent:
		return "the event has already started"
	case eligibility.ReasonFull:
		return "the event is full"
	case eligibility.ReasonDeadlinePassed:
		return "the registration deadline has passed"
	default:
		return "the event is not open for registration"
	}
}

func (s *service) Register(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}
	if event.RegistrationKind != model.RegistrationNative {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Registration for this event happens on an external platform")
		return
	}

	userID := viewerID(ctx)
	if userID == nil && (req.GuestName == "" || req.GuestEmail == "") {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Guest name and email are required without an account")
		return
	}

	role, err := s.viewerRole(ctx, event.CommunityID, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve viewer role")
		dto.InternalServerError(ctx)
		return
	}

	// Drafts do not exist for non-organizers.
	if event.Status == model.StatusDraft && !role.IsOrganizer() {
		dto.EventNotFoundError(ctx)
		return
	}

	existing, err := s.repo.GetRegistrationForViewer(ctx, event.ID, userID, req.GuestEmail)
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

	switch decision.State {
	case eligibility.NativeCanRegister:
		// proceed
	case eligibility.AdminManagement:
		dto.ForbiddenError(ctx)
		return
	case eligibility.NativeRegistered:
		dto.RegistrationDuplicateError(ctx)
		return
	default:
		dto.RegistrationClosedError(ctx, closedReasonMessage(decision.ClosedReason))
		return
	}

	if res := questions.ValidateAnswers(req.Answers, event.Questions); !res.Valid {
		dto.AnswersInvalidError(ctx, res.Errors)
		return
	}

	approval := model.ApprovalApproved
	if event.ApprovalRequired {
		approval = model.ApprovalPending
	}

	registration := &model.Registration{
		EventID:        event.ID,
		UserID:         userID,
		GuestName:      req.GuestName,
		GuestEmail:     req.GuestEmail,
		RSVPStatus:     "going",
		Verified:       userID != nil,
		ApprovalStatus: approval,
		Answers:        req.Answers,
	}
	if registration.IsAnonymous() {
		registration.VerifyToken = uuid.NewString()
	}

	id, err := s.repo.BookRegistrationTx(ctx.Request.Context(), registration)
	if err != nil {
		switch err {
		case repo.ErrEventNotFound:
			dto.EventNotFoundError(ctx)
			return
		case repo.ErrEventFull:
			dto.RegistrationClosedError(ctx, closedReasonMessage(eligibility.ReasonFull))
			return
		case repo.ErrDuplicateRegistration:
			dto.RegistrationDuplicateError(ctx)
			return
		default:
			s.log.Error().Err(err).Msg("failed to book registration")
			dto.InternalServerError(ctx)
			return
		}
	}
	registration.ID = id
	registration.CreatedAt = time.Now()

	s.log.Info().Int64("registration_id", id).Int64("event_id", event.ID).Msg("registration created successfully")

	if registration.IsAnonymous() {
		s.scheduleVerificationExpiry(ctx, event, registration)
	}

	dto.SuccessCreatedResponse(ctx, registrationResponse(registration))
}

// scheduleVerificationExpiry publishes the delayed cleanup message and sends
// the verification email. Neither failure aborts the registration; both are
// logged and the row stays until a later sweep.
func (s *service) scheduleVerificationExpiry(ctx *ginext.Context, event *model.Event, reg *model.Registration) {
	msg := dto.VerificationExpiryMessage{
		RegistrationID: reg.ID,
		EventID:        event.ID,
		ExpireAt:       time.Now().Add(time.Duration(s.verificationTimeoutMinutes) * time.Minute),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal verification expiry message")
		return
	}
	delaySeconds := s.verificationTimeoutMinutes * 60
	if err := s.rbt.Publish(payload, delaySeconds); err != nil {
		s.log.Error().Err(err).Msg("failed to publish verification expiry message")
	}

	if err := s.mail.SendVerificationEmail(
		event.Title,
		reg.GuestEmail,
		reg.VerifyToken,
		s.verificationTimeoutMinutes,
	); err != nil {
		s.log.Warn().Err(err).Msg("failed to send verification e-mail")
	}
}

func (s *service) Unregister(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req dto.UnregisterRequest
	// The body is optional for authenticated viewers.
	_ = ctx.ShouldBindJSON(&req)

	userID := viewerID(ctx)
	if userID == nil && req.GuestEmail == "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Guest email is required without an account")
		return
	}

	registration, err := s.repo.GetRegistrationForViewer(ctx, eventID, userID, req.GuestEmail)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load viewer registration")
		dto.InternalServerError(ctx)
		return
	}
	if registration == nil {
		dto.RegistrationNotFoundError(ctx)
		return
	}

	// Unregistering is always allowed, whatever the approval sub-state.
	if err := s.repo.DeleteRegistration(ctx, registration.ID); err != nil {
		s.log.Error().Err(err).Msg("failed to delete registration")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("registration_id", registration.ID).Int64("event_id", eventID).Msg("registration removed")
	dto.SuccessResponse(ctx, registrationResponse(registration))
}

func (s *service) Subscribe(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req dto.SubscribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}
	if event.RegistrationKind != model.RegistrationExternal {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "This event uses native registration")
		return
	}

	userID := viewerID(ctx)
	if userID == nil && (req.GuestName == "" || req.GuestEmail == "") {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Guest name and email are required without an account")
		return
	}

	role, err := s.viewerRole(ctx, event.CommunityID, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve viewer role")
		dto.InternalServerError(ctx)
		return
	}

	// Drafts do not exist for non-organizers.
	if event.Status == model.StatusDraft && !role.IsOrganizer() {
		dto.EventNotFoundError(ctx)
		return
	}
	if event.Status == model.StatusCancelled {
		dto.RegistrationClosedError(ctx, closedReasonMessage(eligibility.ReasonNotPublished))
		return
	}

	existing, err := s.repo.GetRegistrationForViewer(ctx, event.ID, userID, req.GuestEmail)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load viewer subscription")
		dto.InternalServerError(ctx)
		return
	}

	decision := eligibility.Evaluate(event, eligibility.Input{
		ViewerRole: role,
		Existing:   existing,
		Now:        time.Now(),
	})
	if decision.State != eligibility.ExternalSubscribe {
		if decision.State == eligibility.AdminManagement {
			dto.ForbiddenError(ctx)
			return
		}
		dto.RegistrationClosedError(ctx, closedReasonMessage(eligibility.ReasonPastEvent))
		return
	}
	if decision.AlreadySubscribed {
		dto.RegistrationDuplicateError(ctx)
		return
	}

	// Subscriptions just track interest: no approval flow, no email
	// verification round-trip.
	subscription := &model.Registration{
		EventID:        event.ID,
		UserID:         userID,
		GuestName:      req.GuestName,
		GuestEmail:     req.GuestEmail,
		RSVPStatus:     "going",
		Verified:       true,
		ApprovalStatus: model.ApprovalApproved,
	}

	id, err := s.repo.BookRegistrationTx(ctx.Request.Context(), subscription)
	if err != nil {
		switch err {
		case repo.ErrDuplicateRegistration:
			dto.RegistrationDuplicateError(ctx)
			return
		default:
			s.log.Error().Err(err).Msg("failed to create subscription")
			dto.InternalServerError(ctx)
			return
		}
	}
	subscription.ID = id
	subscription.CreatedAt = time.Now()

	s.log.Info().Int64("registration_id", id).Int64("event_id", event.ID).Msg("external subscription created")
	dto.SuccessCreatedResponse(ctx, registrationResponse(subscription))
}

func (s *service) VerifyRegistration(ctx *ginext.Context) {
	token := ctx.Query("token")
	if token == "" {
		dto.TokenInvalidError(ctx)
		return
	}

	registration, err := s.repo.VerifyRegistrationByToken(ctx, token)
	if err != nil {
		dto.TokenInvalidError(ctx)
		return
	}

	s.log.Info().
		Int64("registration_id", registration.ID).
		Str("email", registration.GuestEmail).
		Msg("registration verified via email link")

	event, err := s.repo.GetEventByID(ctx, registration.EventID)
	if err == nil {
		if err := s.mail.SendRegistrationEmail(event.Title, string(registration.ApprovalStatus), registration.GuestEmail); err != nil {
			s.log.Warn().Err(err).Msg("failed to send confirmation e-mail")
		}
	}

	dto.SuccessResponse(ctx, registrationResponse(registration))
}

func (s *service) ReviewRegistration(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}
	regID, err := parseIDParam(ctx, "regID")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid registration ID")
		return
	}

	var req dto.ReviewRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, ok := s.loadEventAsOrganizer(ctx, eventID)
	if !ok {
		return
	}

	registration, err := s.repo.GetRegistrationByID(ctx, regID)
	if err != nil || registration.EventID != event.ID {
		dto.RegistrationNotFoundError(ctx)
		return
	}
	if registration.ApprovalStatus != model.ApprovalPending {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Only pending registrations can be reviewed")
		return
	}

	// Approving consumes a capacity slot, so the cap is re-checked here.
	if req.Decision == model.ApprovalApproved && event.Capacity != nil {
		count, err := s.repo.CountApprovedRegistrations(ctx, event.ID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to count registrations")
			dto.InternalServerError(ctx)
			return
		}
		if count >= *event.Capacity {
			dto.RegistrationClosedError(ctx, closedReasonMessage(eligibility.ReasonFull))
			return
		}
	}

	if err := s.repo.UpdateApprovalStatusTx(ctx, registration.ID, req.Decision); err != nil {
		s.log.Error().Err(err).Msg("failed to update approval status")
		dto.InternalServerError(ctx)
		return
	}
	registration.ApprovalStatus = req.Decision

	s.log.Info().
		Int64("registration_id", registration.ID).
		Str("decision", string(req.Decision)).
		Msg("registration reviewed")

	if registration.GuestEmail != "" {
		if err := s.mail.SendRegistrationEmail(event.Title, string(req.Decision), registration.GuestEmail); err != nil {
			s.log.Warn().Err(err).Msg("failed to send review decision e-mail")
		}
	}

	dto.SuccessResponse(ctx, registrationResponse(registration))
}

func (s *service) GetAttendees(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	event, ok := s.loadEventAsOrganizer(ctx, eventID)
	if !ok {
		return
	}

	registrations, err := s.repo.GetRegistrationsByEventID(ctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get registrations for attendee list")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.RegistrationResponse, 0, len(registrations))
	for i := range registrations {
		resp = append(resp, registrationResponse(&registrations[i]))
	}
	dto.SuccessResponse(ctx, resp)
}
