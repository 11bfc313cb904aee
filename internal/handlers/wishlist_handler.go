package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/middleware/auth"
	"github.com/gravadigital/wishdraw-api/internal/response"
	"github.com/gravadigital/wishdraw-api/internal/storage/objects"
)

type WishlistHandler struct {
	draws    *draw.Service
	exporter objects.Exporter
	log      *log.Logger
}

// NewWishlistHandler creates the wishlist handler. exporter may be nil, in
// which case exports are streamed back directly.
func NewWishlistHandler(draws *draw.Service, exporter objects.Exporter) *WishlistHandler {
	return &WishlistHandler{
		draws:    draws,
		exporter: exporter,
		log:      logger.Handler("wishlist"),
	}
}

// SubmitRequest is the body of POST /wishlist/submit. Older clients send
// the text as "wishlist".
type SubmitRequest struct {
	Content  string `json:"content"`
	Wishlist string `json:"wishlist"`
}

func (r SubmitRequest) text() string {
	if strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return r.Wishlist
}

// PickedTarget is the wire shape of a drawn wishlist
type PickedTarget struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func pickedTarget(p *draw.Pick) gin.H {
	return gin.H{"pickedTarget": PickedTarget{Name: p.Name, Content: p.Content}}
}

// Submit handles POST /wishlist/submit
func (h *WishlistHandler) Submit(c *gin.Context) {
	participantID, ok := auth.ParticipantID(c)
	if !ok {
		response.UnauthorizedError(c, "Access denied")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}

	entry, err := h.draws.SubmitWishlist(c.Request.Context(), participantID, req.text())
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Wishlist submitted successfully", gin.H{
		"id":         entry.ID,
		"created_at": entry.CreatedAt,
	})
}

// List handles GET /wishlist/pick, the secret box
func (h *WishlistHandler) List(c *gin.Context) {
	participantID, ok := auth.ParticipantID(c)
	if !ok {
		response.UnauthorizedError(c, "Access denied")
		return
	}

	entries, err := h.draws.ListEntries(c.Request.Context(), participantID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// Pick handles POST /wishlist/pick
func (h *WishlistHandler) Pick(c *gin.Context) {
	participantID, ok := auth.ParticipantID(c)
	if !ok {
		response.UnauthorizedError(c, "Access denied")
		return
	}

	pick, err := h.draws.PickTarget(c.Request.Context(), participantID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Wishlist picked successfully", pickedTarget(pick))
}

// Export handles GET /wishlist/pick/export
func (h *WishlistHandler) Export(c *gin.Context) {
	participantID, ok := auth.ParticipantID(c)
	if !ok {
		response.UnauthorizedError(c, "Access denied")
		return
	}

	pick, err := h.draws.CurrentPick(c.Request.Context(), participantID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.exporter != nil {
		url, err := h.exporter.Export(c.Request.Context(), participantID, pick)
		if err != nil {
			h.log.Error("Export upload failed", "participant_id", participantID, "error", err)
			response.InternalServerError(c, "Failed to export wishlist")
			return
		}
		response.SuccessResponse(c, http.StatusOK, "", gin.H{"url": url})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", objects.Filename(pick.Name)))
	c.Data(http.StatusOK, objects.ContentType, objects.Render(pick))
}

// Stats handles GET /wishlist/stats
func (h *WishlistHandler) Stats(c *gin.Context) {
	stats, err := h.draws.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", stats)
}

// writeError maps draw errors onto HTTP statuses. Self-pick is checked
// before no-eligible-targets since it matches both.
func (h *WishlistHandler) writeError(c *gin.Context, err error) {
	var already *draw.AlreadyPickedError
	switch {
	case errors.As(err, &already):
		if already.Target != nil {
			response.ErrorResponseWithData(c, http.StatusBadRequest, "You have already picked a wishlist", pickedTarget(already.Target))
			return
		}
		response.BadRequestError(c, "You have already picked a wishlist")
	case errors.Is(err, draw.ErrSelfPickRejected):
		response.BadRequestError(c, "You cannot pick your own wishlist")
	case errors.Is(err, draw.ErrDuplicateSubmission):
		response.BadRequestError(c, "Wishlist already submitted")
	case errors.Is(err, draw.ErrInvalidInput):
		response.BadRequestError(c, err.Error())
	case errors.Is(err, draw.ErrNoEligibleTargets):
		response.NotFoundError(c, "No wishlists available to pick")
	case errors.Is(err, draw.ErrParticipantNotFound):
		response.NotFoundError(c, "No data found for participant")
	case errors.Is(err, draw.ErrNotPickedYet):
		response.NotFoundError(c, "You have not picked a wishlist yet")
	default:
		h.log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		response.InternalServerError(c, "Internal server error")
	}
}
