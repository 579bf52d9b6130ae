package notification

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitthebill/pkg/middleware"
	"github.com/fkhayef/splitthebill/pkg/response"
)

const maxEmojiLen = 16

// Handler handles HTTP requests for bill event streams
type Handler struct {
	notifier *Notifier
}

// NewHandler creates a new notification handler
func NewHandler(notifier *Notifier) *Handler {
	return &Handler{notifier: notifier}
}

// Attach adds the stream and reaction routes to the bills router
func (h *Handler) Attach(r chi.Router) {
	r.Get("/{id}/events", h.Events)
	r.Post("/{id}/reactions", h.React)
}

// Events handles GET /bills/{id}/events
// @Summary Subscribe to bill signals
// @Description Server-sent event stream carrying REFRESH and REACTION signals
// @Tags events
// @Produce text/event-stream
// @Param id path int true "Bill ID"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} response.APIResponse
// @Router /bills/{id}/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	billID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}

	h.notifier.Serve(w, r, billID)
}

// React handles POST /bills/{id}/reactions
// @Summary Broadcast an emoji reaction
// @Tags events
// @Accept json
// @Param id path int true "Bill ID"
// @Param reaction body ReactionRequest true "Reaction"
// @Success 204
// @Failure 400 {object} response.APIResponse
// @Router /bills/{id}/reactions [post]
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	billID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid bill ID")
		return
	}

	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	// the caller's identity header wins over whatever the body claims
	if uid, ok := middleware.GetUserID(r.Context()); ok {
		req.UserID = uid
	}
	req.Emoji = strings.TrimSpace(req.Emoji)

	if req.UserID <= 0 {
		response.BadRequest(w, "user_id is required")
		return
	}
	if req.Emoji == "" || utf8.RuneCountInString(req.Emoji) > maxEmojiLen {
		response.BadRequest(w, "emoji must be 1 to 16 characters")
		return
	}

	h.notifier.Broadcast(billID, Reaction(req.UserID, req.Emoji))
	w.WriteHeader(http.StatusNoContent)
}
