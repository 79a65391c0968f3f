package settlement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgetbook/internal/group"
	"budgetbook/pkg/middleware"
	"budgetbook/pkg/response"
)

// Handler handles HTTP requests for balances and settle-up
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/group/{groupId}", h.Summary)
	r.Post("/group/{groupId}", h.SettleUp)

	return r
}

// writeError maps domain errors onto the response taxonomy
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, group.ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, group.ErrNotMember):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrMemberNotInGroup):
		response.InvalidReference(w, err.Error())
	case errors.Is(err, ErrSameMember), errors.Is(err, ErrInvalidAmount):
		response.ValidationError(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

// Summary handles GET /settlements/group/{groupId}
// @Summary      Group balances and repayment plan
// @Description  Net balance per member plus a minimal set of transfers that zeroes them.
// @Tags         settlements
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /settlements/group/{groupId} [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
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

	balances, transfers, err := h.service.Summary(r.Context(), groupID, identity.UserID)
	if err != nil {
		writeError(w, err, "Failed to compute balances")
		return
	}

	response.JSON(w, http.StatusOK, &SummaryResponse{
		Balances:  balances,
		Transfers: transfers,
	})
}

// SettleUp handles POST /settlements/group/{groupId}
// @Summary      Record a settlement
// @Description  Records a repayment from one member to another as a Settlement transaction.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        request body SettleUpRequest true "Repayment to record"
// @Success      201 {object} response.APIResponse{data=transaction.TransactionResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /settlements/group/{groupId} [post]
func (h *Handler) SettleUp(w http.ResponseWriter, r *http.Request) {
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

	var req SettleUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	created, err := h.service.SettleUp(r.Context(), groupID, identity.UserID, &req)
	if err != nil {
		writeError(w, err, "Failed to record settlement")
		return
	}

	response.JSON(w, http.StatusCreated, created.ToResponse())
}
