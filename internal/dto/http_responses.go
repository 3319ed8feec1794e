package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/Luhive/luhive-mvp-sub000/internal/eligibility"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	CommunityNotFound     = "COMMUNITY_NOT_FOUND"
	SlugTaken             = "SLUG_TAKEN"
	EventNotFound         = "EVENT_NOT_FOUND"
	RegistrationNotFound  = "REGISTRATION_NOT_FOUND"
	RegistrationDuplicate = "REGISTRATION_DUPLICATE"
	RegistrationClosed    = "REGISTRATION_CLOSED"
	AnswersInvalid        = "ANSWERS_INVALID"
	TokenInvalid          = "TOKEN_INVALID"
	AuthRequired          = "AUTH_REQUIRED"
	Forbidden             = "FORBIDDEN"
)

type CreateCommunityRequest struct {
	Slug        string `json:"slug" validate:"required,slug,min=3,max=64"`
	Name        string `json:"name" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

// EventPayload is shared by event create and update. Cross-field rules
// (address for in-person events, meeting link for online ones, deadline not
// after start) live in the service layer because they depend on Kind.
type EventPayload struct {
	Title            string                 `json:"title" validate:"required,min=3,max=255"`
	Description      string                 `json:"description" validate:"max=10000"`
	StartTime        time.Time              `json:"start_time" validate:"required"`
	EndTime          time.Time              `json:"end_time"`
	Timezone         string                 `json:"timezone" validate:"required,iana_tz"`
	Kind             model.EventKind        `json:"kind" validate:"required,oneof=in_person online hybrid"`
	Address          string                 `json:"address"`
	MeetingURL       string                 `json:"meeting_url"`
	Capacity         *int                   `json:"capacity"`
	Deadline         *time.Time             `json:"registration_deadline"`
	ApprovalRequired bool                   `json:"approval_required"`
	Questions        *questions.Schema      `json:"custom_questions"`
	RegistrationKind model.RegistrationKind `json:"registration_kind" validate:"required,oneof=native external"`
	ExternalPlatform string                 `json:"external_platform"`
	ExternalURL      string                 `json:"external_url"`
}

type RegisterRequest struct {
	GuestName  string            `json:"guest_name" validate:"omitempty,min=2,max=255"`
	GuestEmail string            `json:"guest_email" validate:"omitempty,email"`
	Answers    map[string]string `json:"answers"`
}

type UnregisterRequest struct {
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`
}

type SubscribeRequest struct {
	GuestName  string `json:"guest_name" validate:"omitempty,min=2,max=255"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`
}

type ReviewRegistrationRequest struct {
	Decision model.ApprovalStatus `json:"decision" validate:"required,oneof=approved rejected"`
}

// VerificationExpiryMessage is the delayed-queue payload scheduling cleanup
// of an anonymous registration that was never confirmed by email.
type VerificationExpiryMessage struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	ExpireAt       time.Time `json:"expire_at"`
}

type CommunityResponse struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Events      []EventResponse `json:"events,omitempty"`
}

type EventResponse struct {
	ID               int64                  `json:"id"`
	CommunityID      int64                  `json:"community_id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Timezone         string                 `json:"timezone"`
	Kind             model.EventKind        `json:"kind"`
	Address          string                 `json:"address,omitempty"`
	MeetingURL       string                 `json:"meeting_url,omitempty"`
	Capacity         *int                   `json:"capacity,omitempty"`
	Deadline         *time.Time             `json:"registration_deadline,omitempty"`
	ApprovalRequired bool                   `json:"approval_required"`
	Questions        *questions.Schema      `json:"custom_questions,omitempty"`
	RegistrationKind model.RegistrationKind `json:"registration_kind"`
	ExternalPlatform string                 `json:"external_platform,omitempty"`
	ExternalURL      string                 `json:"external_url,omitempty"`
	Status           model.EventStatus      `json:"status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`

	// Viewer carries the eligibility decision for the requesting viewer.
	// Present on single-event reads, omitted in listings.
	Viewer *eligibility.Decision `json:"viewer,omitempty"`
}

type RegistrationResponse struct {
	ID             int64                `json:"id"`
	EventID        int64                `json:"event_id"`
	UserID         *int64               `json:"user_id,omitempty"`
	GuestName      string               `json:"guest_name,omitempty"`
	GuestEmail     string               `json:"guest_email,omitempty"`
	RSVPStatus     string               `json:"rsvp_status"`
	Verified       bool                 `json:"verified"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status"`
	Answers        map[string]string    `json:"answers,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type DashboardEvent struct {
	EventResponse
	ApprovedCount int `json:"approved_count"`
	PendingCount  int `json:"pending_count"`
}

type DashboardResponse struct {
	Community CommunityResponse `json:"community"`
	Events    []DashboardEvent  `json:"events"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func AuthRequiredError(c *ginext.Context) {
	c.JSON(401, Response{
		Status: "error",
		Error: &Error{
			Code: AuthRequired,
			Desc: "Authentication is required for this action",
		},
	})
}

func ForbiddenError(c *ginext.Context) {
	c.JSON(403, Response{
		Status: "error",
		Error: &Error{
			Code: Forbidden,
			Desc: "You do not have permission to perform this action",
		},
	})
}

func CommunityNotFoundError(c *ginext.Context) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: CommunityNotFound,
			Desc: "Community not found",
		},
	})
}

func EventNotFoundError(c *ginext.Context) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: EventNotFound,
			Desc: "Event not found",
		},
	})
}

func RegistrationNotFoundError(c *ginext.Context) {
	BadResponseError(c, RegistrationNotFound, "Registration not found")
}

func RegistrationDuplicateError(c *ginext.Context) {
	BadResponseError(c, RegistrationDuplicate, "You have already registered for this event")
}

func RegistrationClosedError(c *ginext.Context, reason string) {
	BadResponseError(c, RegistrationClosed, "Registration is closed: "+reason)
}

func SlugTakenError(c *ginext.Context) {
	BadResponseError(c, SlugTaken, "This slug is already in use")
}

func TokenInvalidError(c *ginext.Context) {
	BadResponseError(c, TokenInvalid, "Verification link is invalid or expired")
}

// AnswersInvalidError reports per-field failures from the custom question
// validator; the field map rides along in Data so the client can attach
// messages to inputs.
func AnswersInvalidError(c *ginext.Context, fields map[string]string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: AnswersInvalid,
			Desc: "Some answers are missing or invalid",
		},
		Data: fields,
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
