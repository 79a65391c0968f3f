package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgetbook/internal/group"
	"budgetbook/internal/transaction/split"
	"budgetbook/pkg/middleware"
	"budgetbook/pkg/response"
)

// Handler handles HTTP requests for ledger operations
type Handler struct {
	service *Service
}

// NewHandler creates a new transaction handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for transaction endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/group/{groupId}", h.ListByGroup)

	return r
}

// writeError maps domain errors onto the response taxonomy
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, group.ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotAllowed), errors.Is(err, group.ErrNotMember):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrPayerNotMember), errors.Is(err, ErrParticipantNotMember):
		response.InvalidReference(w, err.Error())
	case errors.Is(err, split.ErrPercentTotal), errors.Is(err, split.ErrShareTotal),
		errors.Is(err, split.ErrMissingPercent), errors.Is(err, split.ErrMissingAmount),
		errors.Is(err, split.ErrPercentOutOfRange), errors.Is(err, split.ErrNegativeShare),
		errors.Is(err, split.ErrNoParticipants), errors.Is(err, split.ErrNonPositiveAmount),
		errors.Is(err, ErrInvalidAmount):
		response.ValidationError(w, err.Error())
	case errors.Is(err, ErrCategoryRequired), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrSplitsRequired):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

// Create handles POST /transactions
// @Summary      Add a transaction
// @Description  Record a personal or group expense. Group expenses can carry an EQUAL, PERCENT, or EXACT split across members; the shares always sum exactly to the amount.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request body CreateTransactionRequest true "Transaction to record"
// @Success      201 {object} response.APIResponse{data=TransactionResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /transactions [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	transaction, err := h.service.Create(r.Context(), identity.UserID, &req)
	if err != nil {
		writeError(w, err, "Failed to create transaction")
		return
	}

	response.JSON(w, http.StatusCreated, transaction.ToResponse())
}

// GetByID handles GET /transactions/{id}
// @Summary      Get transaction by ID
// @Tags         transactions
// @Produce      json
// @Param        id path int true "Transaction ID"
// @Success      200 {object} response.APIResponse{data=TransactionResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /transactions/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid transaction ID")
		return
	}

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	transaction, err := h.service.GetByID(r.Context(), id, identity.UserID)
	if err != nil {
		writeError(w, err, "Failed to get transaction")
		return
	}

	response.JSON(w, http.StatusOK, transaction.ToResponse())
}

// Update handles PUT /transactions/{id}
// @Summary      Edit a transaction
// @Description  Partial edit by the payer (or the creator when no payer is recorded). Amount or participant changes recompute the splits; every change lands in the group's activity log.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path int true "Transaction ID"
// @Param        request body UpdateTransactionRequest true "Fields to update"
// @Success      200 {object} response.APIResponse{data=TransactionResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /transactions/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid transaction ID")
		return
	}

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	transaction, err := h.service.Update(r.Context(), id, identity.UserID, &req)
	if err != nil {
		writeError(w, err, "Failed to update transaction")
		return
	}

	response.JSON(w, http.StatusOK, transaction.ToResponse())
}

// Delete handles DELETE /transactions/{id}
// @Summary      Delete a transaction
// @Description  Payer only, or the creator when no payer is recorded. The activity log retains the amount and note.
// @Tags         transactions
// @Produce      json
// @Param        id path int true "Transaction ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /transactions/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid transaction ID")
		return
	}

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), id, identity.UserID); err != nil {
		writeError(w, err, "Failed to delete transaction")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}

// ListByGroup handles GET /transactions/group/{groupId}
// @Summary      List a group's transactions
// @Tags         transactions
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]TransactionResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /transactions/group/{groupId} [get]
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

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	transactions, total, err := h.service.ListByGroup(r.Context(), groupID, identity.UserID, page, perPage)
	if err != nil {
		writeError(w, err, "Failed to list transactions")
		return
	}

	transactionResponses := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		transactionResponses[i] = t.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, transactionResponses, meta)
}
