package handler

import (
	"github.com/gin-gonic/gin"

	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/service"
	"wedding/guesthub/pkg/response"
)

// GuestHandler serves the signed-in guest's own record and RSVP form.
type GuestHandler struct {
	guestService service.GuestService
	rsvpService  service.RSVPService
}

func NewGuestHandler(guestService service.GuestService, rsvpService service.RSVPService) *GuestHandler {
	return &GuestHandler{guestService: guestService, rsvpService: rsvpService}
}

type SubmitRSVPRequest struct {
	RSVPStatus      string                  `json:"rsvp_status" binding:"required"`
	PlusOneName     string                  `json:"plus_one_name"`
	PlusOneEmail    string                  `json:"plus_one_email"`
	DietaryNeeds    []string                `json:"dietary_needs"`
	Allergies       []string                `json:"allergies"`
	SpecialRequests *string                 `json:"special_requests"`
	ContactUpdates  *service.ContactUpdates `json:"contact_updates"`
	NewGuests       []service.NewGuestInput `json:"new_guests"`
}

// Me returns the active guest record linked to the caller. A caller without
// one gets data: null.
func (h *GuestHandler) Me(c *gin.Context) {
	accountID, err := getAccountIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	guest, err := h.guestService.GetByAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "get guest failed")
		return
	}
	if guest == nil {
		response.Success(c, nil)
		return
	}
	response.Success(c, guest)
}

func (h *GuestHandler) SubmitRSVP(c *gin.Context) {
	accountID, err := getAccountIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req SubmitRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	guest, err := h.guestService.GetByAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "get guest failed")
		return
	}
	if guest == nil {
		response.NotFound(c, service.ErrGuestNotFound.Error())
		return
	}

	result, err := h.rsvpService.ProcessRSVP(c.Request.Context(), service.RSVPInput{
		GuestID:         guest.ID,
		Status:          model.RSVPStatus(req.RSVPStatus),
		PlusOneName:     req.PlusOneName,
		PlusOneEmail:    req.PlusOneEmail,
		DietaryNeeds:    req.DietaryNeeds,
		Allergies:       req.Allergies,
		SpecialRequests: req.SpecialRequests,
		ContactUpdates:  req.ContactUpdates,
		NewGuests:       req.NewGuests,
	})
	if err != nil {
		respondError(c, err, "rsvp submission failed")
		return
	}

	response.Success(c, result)
}
