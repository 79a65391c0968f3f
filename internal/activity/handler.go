package activity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgetbook/pkg/middleware"
	"budgetbook/pkg/response"
)

// MembershipChecker answers whether a user belongs to a group. Implemented
// by the group service.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Handler handles HTTP requests for the activity feed
type Handler struct {
	service    *Service
	membership MembershipChecker
}

// NewHandler creates a new activity handler
func NewHandler(service *Service, membership MembershipChecker) *Handler {
	return &Handler{service: service, membership: membership}
}

// Routes returns the router for activity endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/group/{groupId}", h.ListByGroup)

	return r
}

// ListByGroup handles GET /activity/group/{groupId}
// @Summary      Get group activity feed
// @Description  Most recent ledger-affecting events for a group, newest first
// @Tags         activity
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        limit query int false "Max events" default(50)
// @Success      200 {object} response.APIResponse{data=[]Event}
// @Failure      403 {object} response.APIResponse
// @Router       /activity/group/{groupId} [get]
func (h *Handler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	isMember, err := h.membership.IsMember(r.Context(), groupID, identity.UserID)
	if err != nil {
		response.InternalError(w, "Failed to check membership")
		return
	}
	if !isMember {
		response.Forbidden(w, "not a member of this group")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.service.ListByGroup(r.Context(), groupID, limit)
	if err != nil {
		response.InternalError(w, "Failed to list activity")
		return
	}

	response.JSON(w, http.StatusOK, events)
}
