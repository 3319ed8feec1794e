package service

import (
	"fmt"

	"github.com/wb-go/wbf/ginext"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/model"
	"github.com/Luhive/luhive-mvp-sub000/internal/repo"
	"github.com/Luhive/luhive-mvp-sub000/pkg/validator"
)

func (s *service) CreateCommunity(ctx *ginext.Context) {
	userID := viewerID(ctx)
	if userID == nil {
		dto.AuthRequiredError(ctx)
		return
	}

	var req dto.CreateCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create community request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	community := &model.Community{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     *userID,
	}

	id, err := s.repo.CreateCommunity(ctx, community)
	if err != nil {
		if err == repo.ErrSlugTaken {
			dto.SlugTakenError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to create community in DB")
		dto.InternalServerError(ctx)
		return
	}

	community.ID = id
	s.log.Info().Int64("community_id", id).Str("slug", community.Slug).Msg("community created successfully")

	dto.SuccessCreatedResponse(ctx, dto.CommunityResponse{
		ID:          community.ID,
		Slug:        community.Slug,
		Name:        community.Name,
		Description: community.Description,
		CreatedAt:   community.CreatedAt,
	})
}

func (s *service) GetCommunity(ctx *ginext.Context) {
	slug := ctx.Param("slug")

	community, err := s.repo.GetCommunityBySlug(ctx, slug)
	if err != nil {
		dto.CommunityNotFoundError(ctx)
		return
	}

	events, err := s.repo.ListEventsByCommunity(ctx, community.ID, false)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list community events")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.CommunityResponse{
		ID:          community.ID,
		Slug:        community.Slug,
		Name:        community.Name,
		Description: community.Description,
		CreatedAt:   community.CreatedAt,
	}
	for i := range events {
		resp.Events = append(resp.Events, eventResponse(&events[i], nil))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetDashboard(ctx *ginext.Context) {
	slug := ctx.Param("slug")

	community, err := s.repo.GetCommunityBySlug(ctx, slug)
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

	events, err := s.repo.ListEventsByCommunity(ctx, community.ID, true)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events for dashboard")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.DashboardResponse{
		Community: dto.CommunityResponse{
			ID:          community.ID,
			Slug:        community.Slug,
			Name:        community.Name,
			Description: community.Description,
			CreatedAt:   community.CreatedAt,
		},
	}

	for i := range events {
		e := &events[i]
		approved, err := s.repo.CountApprovedRegistrations(ctx, e.ID)
		if err != nil {
			s.log.Error().Err(err).Int64("event_id", e.ID).Msg("failed to count approved registrations")
			continue
		}
		pending, err := s.repo.CountPendingRegistrations(ctx, e.ID)
		if err != nil {
			s.log.Error().Err(err).Int64("event_id", e.ID).Msg("failed to count pending registrations")
			continue
		}
		resp.Events = append(resp.Events, dto.DashboardEvent{
			EventResponse: eventResponse(e, nil),
			ApprovedCount: approved,
			PendingCount:  pending,
		})
	}

	dto.SuccessResponse(ctx, resp)
}
