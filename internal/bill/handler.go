package bill

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/settlement"
	"github.com/fkhayef/splitthebill/pkg/middleware"
	"github.com/fkhayef/splitthebill/pkg/response"
)

// Handler handles HTTP requests for bill operations
type Handler struct {
	service *Service
}

// NewHandler creates a new bill handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for bill endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items/{itemId}", h.DeleteItem)
	r.Post("/{id}/participants", h.AddParticipant)
	r.Delete("/{id}/participants/{pid}", h.RemoveParticipant)
	r.Patch("/{id}/participants/{pid}/payment", h.SetPaymentStatus)
	r.Post("/{id}/join", h.Join)
	r.Post("/{id}/split-equally", h.SplitEqually)
	r.Post("/{id}/split-remainder", h.SplitRemainder)
	r.Post("/{id}/assign", h.Assign)
	r.Post("/{id}/close", h.Close)

	return r
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// caller resolves the acting user, writing 401 when there is none
func caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, middleware.UserHeader+" header required")
	}
	return userID, ok
}

// writeError maps service errors to HTTP responses
func writeError(w http.ResponseWriter, err error, fallback string) {
	var exceeds *split.ExceedsError
	switch {
	case errors.Is(err, ErrBillNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, split.ErrUnknownParticipant):
		response.NotFound(w, err.Error())
	case errors.Is(err, settlement.ErrNotOwner),
		errors.Is(err, settlement.ErrNotAllowed),
		errors.Is(err, settlement.ErrSelfUnpay):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyParticipant):
		response.Conflict(w, err.Error())
	case errors.As(err, &exceeds),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrParticipantIdentity),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, settlement.ErrBillClosed),
		errors.Is(err, settlement.ErrNothingToPay),
		errors.Is(err, settlement.ErrOwnerParticipant),
		errors.Is(err, split.ErrNoParticipants),
		errors.Is(err, split.ErrNoUnpaid),
		errors.Is(err, split.ErrEmptySelection),
		errors.Is(err, split.ErrNothingToSplit),
		errors.Is(err, split.ErrNegativeAmount),
		errors.Is(err, split.ErrPaidUnassign):
		response.BadRequest(w, err.Error())
	default:
		slog.Error(fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

// Create handles POST /bills
// @Summary      Create a bill
// @Description  Creates a bill with the whole total unallocated
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        X-User-ID header int true "Caller"
// @Param        request body CreateBillRequest true "Bill"
// @Success      201 {object} response.APIResponse{data=BillResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /bills [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	b, err := h.service.CreateBill(r.Context(), actorID, &req)
	if err != nil {
		writeError(w, err, "Failed to create bill")
		return
	}

	response.JSON(w, http.StatusCreated, b.ToResponse())
}

// Get handles GET /bills/{id}
// @Summary      Get bill detail
// @Tags         bills
// @Produce      json
// @Param        id path int true "Bill ID"
// @Success      200 {object} response.APIResponse{data=DetailResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}

	detail, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get bill")
		return
	}

	response.JSON(w, http.StatusOK, detail.ToResponse())
}

// AddItem handles POST /bills/{id}/items
// @Summary      Add a line item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path int true "Bill ID"
// @Param        request body AddItemRequest true "Item"
// @Success      201 {object} response.APIResponse{data=ItemResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /bills/{id}/items [post]
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	it, err := h.service.AddItem(r.Context(), id, actorID, &req)
	if err != nil {
		writeError(w, err, "Failed to add item")
		return
	}

	response.JSON(w, http.StatusCreated, it.ToResponse())
}

// DeleteItem handles DELETE /bills/{id}/items/{itemId}
// @Summary      Remove a line item
// @Tags         items
// @Param        id path int true "Bill ID"
// @Param        itemId path int true "Item ID"
// @Success      204
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/items/{itemId} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), id, itemID, actorID); err != nil {
		writeError(w, err, "Failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddParticipant handles POST /bills/{id}/participants
// @Summary      Add a participant
// @Description  Adds a registered user or a named guest
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        id path int true "Bill ID"
// @Param        request body AddParticipantRequest true "Participant"
// @Success      201 {object} response.APIResponse{data=[]ParticipantResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /bills/{id}/participants [post]
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	participants, err := h.service.AddParticipant(r.Context(), id, actorID, &req)
	if err != nil {
		writeError(w, err, "Failed to add participant")
		return
	}

	response.JSON(w, http.StatusCreated, ParticipantsToResponse(participants))
}

// Join handles POST /bills/{id}/join
// @Summary      Join a bill
// @Description  Adds the caller as a participant; joining again is a no-op
// @Tags         participants
// @Produce      json
// @Param        id path int true "Bill ID"
// @Success      200 {object} response.APIResponse{data=ParticipantResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /bills/{id}/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	userID, ok := caller(w, r)
	if !ok {
		return
	}

	p, err := h.service.Join(r.Context(), id, userID)
	if err != nil {
		writeError(w, err, "Failed to join bill")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// RemoveParticipant handles DELETE /bills/{id}/participants/{pid}
// @Summary      Remove a participant
// @Tags         participants
// @Produce      json
// @Param        id path int true "Bill ID"
// @Param        pid path int true "Participant ID"
// @Success      200 {object} response.APIResponse{data=DetailResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/participants/{pid} [delete]
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	pid, err := pathID(r, "pid")
	if err != nil {
		response.BadRequest(w, "Invalid participant ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	detail, err := h.service.RemoveParticipant(r.Context(), id, pid, actorID)
	if err != nil {
		writeError(w, err, "Failed to remove participant")
		return
	}

	response.JSON(w, http.StatusOK, detail.ToResponse())
}

// SplitEqually handles POST /bills/{id}/split-equally
// @Summary      Split equally
// @Description  Splits the total minus paid shares evenly among unpaid participants
// @Tags         allocation
// @Produce      json
// @Param        id path int true "Bill ID"
// @Success      200 {object} response.APIResponse{data=[]ParticipantResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /bills/{id}/split-equally [post]
func (h *Handler) SplitEqually(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	participants, err := h.service.SplitEqually(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err, "Failed to split bill")
		return
	}

	response.JSON(w, http.StatusOK, ParticipantsToResponse(participants))
}

// SplitRemainder handles POST /bills/{id}/split-remainder
// @Summary      Split the remainder
// @Description  Adds equal shares of the unallocated remainder to the selected participants
// @Tags         allocation
// @Accept       json
// @Produce      json
// @Param        id path int true "Bill ID"
// @Param        request body SplitRemainderRequest true "Selection"
// @Success      200 {object} response.APIResponse{data=[]ParticipantResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /bills/{id}/split-remainder [post]
func (h *Handler) SplitRemainder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req SplitRemainderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	participants, err := h.service.SplitRemainder(r.Context(), id, actorID, req.ParticipantIDs)
	if err != nil {
		writeError(w, err, "Failed to split remainder")
		return
	}

	response.JSON(w, http.StatusOK, ParticipantsToResponse(participants))
}

// Assign handles POST /bills/{id}/assign
// @Summary      Assign an amount
// @Description  Sets one participant's allocation; amounts above the available maximum are rejected
// @Tags         allocation
// @Accept       json
// @Produce      json
// @Param        id path int true "Bill ID"
// @Param        request body AssignAmountRequest true "Assignment"
// @Success      200 {object} response.APIResponse{data=ParticipantResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /bills/{id}/assign [post]
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req AssignAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.AssignAmount(r.Context(), id, actorID, &req)
	if err != nil {
		writeError(w, err, "Failed to assign amount")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// SetPaymentStatus handles PATCH /bills/{id}/participants/{pid}/payment
// @Summary      Set payment status
// @Tags         settlement
// @Accept       json
// @Produce      json
// @Param        id path int true "Bill ID"
// @Param        pid path int true "Participant ID"
// @Param        request body PaymentStatusRequest true "Status"
// @Success      200 {object} response.APIResponse{data=ParticipantResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /bills/{id}/participants/{pid}/payment [patch]
func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	pid, err := pathID(r, "pid")
	if err != nil {
		response.BadRequest(w, "Invalid participant ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req PaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.SetPaymentStatus(r.Context(), id, pid, actorID, req.IsPaid)
	if err != nil {
		writeError(w, err, "Failed to update payment status")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// Close handles POST /bills/{id}/close
// @Summary      Close a bill
// @Tags         settlement
// @Produce      json
// @Param        id path int true "Bill ID"
// @Success      200 {object} response.APIResponse{data=BillResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /bills/{id}/close [post]
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	b, err := h.service.CloseBill(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err, "Failed to close bill")
		return
	}

	response.JSON(w, http.StatusOK, b.ToResponse())
}
