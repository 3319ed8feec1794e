package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/questions"
)

var (
	ErrCommunityNotFound     = errors.New("community not found")
	ErrSlugTaken             = errors.New("community slug already taken")
	ErrEventNotFound         = errors.New("event not found")
	ErrEventFull             = errors.New("event is full")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrRegistrationNotFound  = errors.New("registration not found")
)

type Repository interface {
	CreateCommunity(ctx context.Context, c *model.Community) (int64, error)
	GetCommunityBySlug(ctx context.Context, slug string) (*model.Community, error)
	GetCommunityByID(ctx context.Context, id int64) (*model.Community, error)
	GetViewerRole(ctx context.Context, communityID, userID int64) (model.Role, error)

	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	UpdateEventStatus(ctx context.Context, eventID int64, status model.EventStatus) error
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	ListEventsByCommunity(ctx context.Context, communityID int64, includeDrafts bool) ([]model.Event, error)

	BookRegistrationTx(ctx context.Context, reg *model.Registration) (int64, error)
	GetRegistrationForViewer(ctx context.Context, eventID int64, userID *int64, guestEmail string) (*model.Registration, error)
	GetRegistrationByID(ctx context.Context, id int64) (*model.Registration, error)
	DeleteRegistration(ctx context.Context, registrationID int64) error
	VerifyRegistrationByToken(ctx context.Context, token string) (*model.Registration, error)
	UpdateApprovalStatusTx(ctx context.Context, registrationID int64, status model.ApprovalStatus) error
	DeleteIfUnverifiedTx(ctx context.Context, registrationID int64) (bool, error)
	CountApprovedRegistrations(ctx context.Context, eventID int64) (int, error)
	CountPendingRegistrations(ctx context.Context, eventID int64) (int, error)
	GetRegistrationsByEventID(ctx context.Context, eventID int64) ([]model.Registration, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

func (r *repository) CreateCommunity(ctx context.Context, c *model.Community) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM communities WHERE slug = $1
	`, c.Slug).Scan(&exists)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists > 0 {
		_ = tx.Rollback()
		return 0, ErrSlugTaken
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO communities (slug, name, description, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.Slug, c.Name, c.Description, c.OwnerID).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert community: %w", err)
	}

	// The creator is the owner member from the start.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memberships (community_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`, id, c.OwnerID); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func (r *repository) GetCommunityBySlug(ctx context.Context, slug string) (*model.Community, error) {
	query := `
		SELECT id, slug, name, description, owner_id, created_at, updated_at
		FROM communities WHERE slug = $1
	`
	row := r.db.QueryRowContext(ctx, query, slug)

	var c model.Community
	if err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Description, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, ErrCommunityNotFound
	}
	return &c, nil
}

func (r *repository) GetCommunityByID(ctx context.Context, id int64) (*model.Community, error) {
	query := `
		SELECT id, slug, name, description, owner_id, created_at, updated_at
		FROM communities WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var c model.Community
	if err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Description, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, ErrCommunityNotFound
	}
	return &c, nil
}

// GetViewerRole resolves the viewer to exactly one role. Stale duplicate
// membership rows resolve to the highest privilege.
func (r *repository) GetViewerRole(ctx context.Context, communityID, userID int64) (model.Role, error) {
	query := `
		SELECT role
		FROM memberships
		WHERE community_id = $1 AND user_id = $2
		ORDER BY CASE role
			WHEN 'owner' THEN 0
			WHEN 'admin' THEN 1
			ELSE 2
		END
		LIMIT 1
	`
	var role string
	err := r.db.QueryRowContext(ctx, query, communityID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return model.RoleNone, nil
	}
	if err != nil {
		return model.RoleNone, fmt.Errorf("failed to resolve viewer role: %w", err)
	}
	return model.Role(role), nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	questionsJSON, err := questions.EncodeSchema(e.Questions)
	if err != nil {
		return 0, fmt.Errorf("failed to encode custom questions: %w", err)
	}

	query := `
		INSERT INTO events (
			community_id, title, description, start_time, end_time, timezone,
			kind, address, meeting_url, capacity, registration_deadline,
			approval_required, custom_questions, registration_kind,
			external_platform, external_url, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	row := r.db.QueryRowContext(ctx, query,
		e.CommunityID, e.Title, e.Description, e.StartTime, e.EndTime, e.Timezone,
		e.Kind, e.Address, e.MeetingURL, nullableInt(e.Capacity), nullableTime(e.Deadline),
		e.ApprovalRequired, nullableBytes(questionsJSON), e.RegistrationKind,
		e.ExternalPlatform, e.ExternalURL, e.Status,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateEvent(ctx context.Context, e *model.Event) error {
	questionsJSON, err := questions.EncodeSchema(e.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode custom questions: %w", err)
	}

	query := `
		UPDATE events
		SET title = $1, description = $2, start_time = $3, end_time = $4,
		    timezone = $5, kind = $6, address = $7, meeting_url = $8,
		    capacity = $9, registration_deadline = $10, approval_required = $11,
		    custom_questions = $12, registration_kind = $13,
		    external_platform = $14, external_url = $15, updated_at = NOW()
		WHERE id = $16
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartTime, e.EndTime,
		e.Timezone, e.Kind, e.Address, e.MeetingURL,
		nullableInt(e.Capacity), nullableTime(e.Deadline), e.ApprovalRequired,
		nullableBytes(questionsJSON), e.RegistrationKind,
		e.ExternalPlatform, e.ExternalURL, e.ID,
	).Scan(&id); err != nil {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) UpdateEventStatus(ctx context.Context, eventID int64, status model.EventStatus) error {
	query := `
		UPDATE events
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, status, eventID).Scan(&id); err != nil {
		return ErrEventNotFound
	}
	return nil
}

const eventColumns = `
	id, community_id, title, description, start_time, end_time, timezone,
	kind, address, meeting_url, capacity, registration_deadline,
	approval_required, custom_questions, registration_kind,
	external_platform, external_url, status, created_at, updated_at
`

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row.Scan)
	if err != nil {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (r *repository) ListEventsByCommunity(ctx context.Context, communityID int64, includeDrafts bool) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE community_id = $1 AND status != 'cancelled'
	`
	if !includeDrafts {
		query += ` AND status = 'published'`
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, nil
}

func scanEvent(scan func(dest ...any) error) (*model.Event, error) {
	var (
		e             model.Event
		capacity      sql.NullInt64
		deadline      sql.NullTime
		questionsJSON []byte
	)
	if err := scan(
		&e.ID, &e.CommunityID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.Timezone,
		&e.Kind, &e.Address, &e.MeetingURL, &capacity, &deadline,
		&e.ApprovalRequired, &questionsJSON, &e.RegistrationKind,
		&e.ExternalPlatform, &e.ExternalURL, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	if deadline.Valid {
		d := deadline.Time
		e.Deadline = &d
	}
	schema, err := questions.ParseSchema(questionsJSON)
	if err != nil {
		return nil, err
	}
	e.Questions = schema
	return &e, nil
}

// BookRegistrationTx inserts a registration while holding a row lock on the
// event: capacity and uniqueness are re-checked under the lock so two
// concurrent submissions cannot both slip through the eligibility check.
func (r *repository) BookRegistrationTx(ctx context.Context, reg *model.Registration) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var capacity sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT capacity
		FROM events
		WHERE id = $1
		FOR UPDATE
	`, reg.EventID).Scan(&capacity)
	if err != nil {
		_ = tx.Rollback()
		return 0, ErrEventNotFound
	}

	// Capacity only counts approved registrations; pending and rejected
	// ones never occupy a slot.
	if capacity.Valid && reg.ApprovalStatus == model.ApprovalApproved {
		var count int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM registrations
			WHERE event_id = $1 AND approval_status = 'approved'
		`, reg.EventID).Scan(&count)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to count registrations: %w", err)
		}
		if count >= int(capacity.Int64) {
			_ = tx.Rollback()
			return 0, ErrEventFull
		}
	}

	var existing int
	if reg.UserID != nil {
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM registrations
			WHERE event_id = $1 AND user_id = $2
		`, reg.EventID, *reg.UserID).Scan(&existing)
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM registrations
			WHERE event_id = $1 AND guest_email = $2
		`, reg.EventID, reg.GuestEmail).Scan(&existing)
	}
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	if existing > 0 {
		_ = tx.Rollback()
		return 0, ErrDuplicateRegistration
	}

	answersJSON, err := encodeAnswers(reg.Answers)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to encode answers: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (
			event_id, user_id, guest_name, guest_email, rsvp_status,
			verified, verify_token, approval_status, answers, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id
	`, reg.EventID, nullableInt64(reg.UserID), reg.GuestName, reg.GuestEmail,
		reg.RSVPStatus, reg.Verified, nullableString(reg.VerifyToken),
		reg.ApprovalStatus, nullableBytes(answersJSON),
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

const registrationColumns = `
	id, event_id, user_id, guest_name, guest_email, rsvp_status,
	verified, verify_token, approval_status, answers, created_at, updated_at
`

func (r *repository) GetRegistrationForViewer(ctx context.Context, eventID int64, userID *int64, guestEmail string) (*model.Registration, error) {
	var row *sql.Row
	switch {
	case userID != nil:
		row = r.db.QueryRowContext(ctx, `
			SELECT `+registrationColumns+`
			FROM registrations
			WHERE event_id = $1 AND user_id = $2
		`, eventID, *userID)
	case guestEmail != "":
		row = r.db.QueryRowContext(ctx, `
			SELECT `+registrationColumns+`
			FROM registrations
			WHERE event_id = $1 AND guest_email = $2
		`, eventID, guestEmail)
	default:
		return nil, nil
	}

	reg, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	return reg, nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id int64) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
	`, id)
	reg, err := scanRegistration(row.Scan)
	if err != nil {
		return nil, ErrRegistrationNotFound
	}
	return reg, nil
}

func (r *repository) DeleteRegistration(ctx context.Context, registrationID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *repository) VerifyRegistrationByToken(ctx context.Context, token string) (*model.Registration, error) {
	query := `
		UPDATE registrations
		SET verified = TRUE, updated_at = NOW()
		WHERE verify_token = $1
		RETURNING ` + registrationColumns
	row := r.db.QueryRowContext(ctx, query, token)
	reg, err := scanRegistration(row.Scan)
	if err != nil {
		return nil, ErrRegistrationNotFound
	}
	return reg, nil
}

func (r *repository) UpdateApprovalStatusTx(ctx context.Context, registrationID int64, status model.ApprovalStatus) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	query := `
		UPDATE registrations
		SET approval_status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, query, status, registrationID).Scan(&id); err != nil {
		_ = tx.Rollback()
		return ErrRegistrationNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteIfUnverifiedTx removes an anonymous registration whose verification
// window expired. Returns false when the registration was already verified
// or already gone.
func (r *repository) DeleteIfUnverifiedTx(ctx context.Context, registrationID int64) (bool, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var verified bool
	err = tx.QueryRowContext(ctx, `
		SELECT verified
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`, registrationID).Scan(&verified)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to select registration for cleanup: %w", err)
	}

	if verified {
		_ = tx.Rollback()
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to delete unverified registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit cleanup transaction: %w", err)
	}
	return true, nil
}

// CountApprovedRegistrations is the count source the eligibility evaluator
// relies on: approved registrations only.
func (r *repository) CountApprovedRegistrations(ctx context.Context, eventID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND approval_status = 'approved'
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *repository) CountPendingRegistrations(ctx context.Context, eventID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND approval_status = 'pending'
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending registrations: %w", err)
	}
	return count, nil
}

func (r *repository) GetRegistrationsByEventID(ctx context.Context, eventID int64) ([]model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, nil
}

func scanRegistration(scan func(dest ...any) error) (*model.Registration, error) {
	var (
		reg         model.Registration
		userID      sql.NullInt64
		verifyToken sql.NullString
		answersJSON []byte
	)
	if err := scan(
		&reg.ID, &reg.EventID, &userID, &reg.GuestName, &reg.GuestEmail, &reg.RSVPStatus,
		&reg.Verified, &verifyToken, &reg.ApprovalStatus, &answersJSON, &reg.CreatedAt, &reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if userID.Valid {
		u := userID.Int64
		reg.UserID = &u
	}
	if verifyToken.Valid {
		reg.VerifyToken = verifyToken.String
	}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &reg.Answers); err != nil {
			return nil, fmt.Errorf("malformed answers payload: %w", err)
		}
	}
	return &reg, nil
}

func encodeAnswers(answers map[string]string) ([]byte, error) {
	if len(answers) == 0 {
		return nil, nil
	}
	return json.Marshal(answers)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
