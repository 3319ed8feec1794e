package model

import (
	"time"

	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleNone   Role = "none"
)

// IsOrganizer reports whether the role grants event management access.
func (r Role) IsOrganizer() bool {
	return r == RoleOwner || r == RoleAdmin
}

type EventKind string

const (
	KindInPerson EventKind = "in_person"
	KindOnline   EventKind = "online"
	KindHybrid   EventKind = "hybrid"
)

type RegistrationKind string

const (
	RegistrationNative   RegistrationKind = "native"
	RegistrationExternal RegistrationKind = "external"
)

type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusCancelled EventStatus = "cancelled"
)

type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

type Community struct {
	ID          int64     `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description,omitempty" json:"description,omitempty"`
	OwnerID     int64     `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type Membership struct {
	CommunityID int64     `db:"community_id" json:"community_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Role        Role      `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID               int64             `db:"id" json:"id"`
	CommunityID      int64             `db:"community_id" json:"community_id"`
	Title            string            `db:"title" json:"title"`
	Description      string            `db:"description,omitempty" json:"description,omitempty"`
	StartTime        time.Time         `db:"start_time" json:"start_time"`
	EndTime          time.Time         `db:"end_time" json:"end_time"`
	Timezone         string            `db:"timezone" json:"timezone"`
	Kind             EventKind         `db:"kind" json:"kind"`
	Address          string            `db:"address,omitempty" json:"address,omitempty"`
	MeetingURL       string            `db:"meeting_url,omitempty" json:"meeting_url,omitempty"`
	Capacity         *int              `db:"capacity" json:"capacity,omitempty"`
	Deadline         *time.Time        `db:"registration_deadline" json:"registration_deadline,omitempty"`
	ApprovalRequired bool              `db:"approval_required" json:"approval_required"`
	Questions        *questions.Schema `db:"custom_questions" json:"custom_questions,omitempty"`
	RegistrationKind RegistrationKind  `db:"registration_kind" json:"registration_kind"`
	ExternalPlatform string            `db:"external_platform,omitempty" json:"external_platform,omitempty"`
	ExternalURL      string            `db:"external_url,omitempty" json:"external_url,omitempty"`
	Status           EventStatus       `db:"status" json:"status"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// EffectiveDeadline is the moment after which registration closes. Events
// without an explicit deadline close at start time.
func (e *Event) EffectiveDeadline() time.Time {
	if e.Deadline != nil {
		return *e.Deadline
	}
	return e.StartTime
}

// IsPast reports whether the event has already started.
func (e *Event) IsPast(now time.Time) bool {
	return !now.Before(e.StartTime)
}

type Registration struct {
	ID             int64             `db:"id" json:"id"`
	EventID        int64             `db:"event_id" json:"event_id"`
	UserID         *int64            `db:"user_id" json:"user_id,omitempty"`
	GuestName      string            `db:"guest_name,omitempty" json:"guest_name,omitempty"`
	GuestEmail     string            `db:"guest_email,omitempty" json:"guest_email,omitempty"`
	RSVPStatus     string            `db:"rsvp_status" json:"rsvp_status"`
	Verified       bool              `db:"verified" json:"verified"`
	VerifyToken    string            `db:"verify_token,omitempty" json:"-"`
	ApprovalStatus ApprovalStatus    `db:"approval_status" json:"approval_status"`
	Answers        map[string]string `db:"answers" json:"answers,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// IsAnonymous reports whether the registration belongs to a visitor without
// an account (identified by guest name + email).
func (r *Registration) IsAnonymous() bool {
	return r.UserID == nil
}
