package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
	"wedding/guesthub/internal/service"
	"wedding/guesthub/pkg/response"
)

type AdminHandler struct {
	guestService service.GuestService
	seatService  service.SeatService
}

func NewAdminHandler(guestService service.GuestService, seatService service.SeatService) *AdminHandler {
	return &AdminHandler{
		guestService: guestService,
		seatService:  seatService,
	}
}

type ImportGuestsRequest struct {
	Guests []service.GuestInput `json:"guests" binding:"required"`
}

type LinkGuestRequest struct {
	AccountID string `json:"account_id" binding:"required"`
}

type ArchiveGuestRequest struct {
	Reason string `json:"reason"`
}

type BulkArchiveRequest struct {
	GuestIDs []string `json:"guest_ids" binding:"required"`
	Reason   string   `json:"reason"`
}

type SetRSVPStatusRequest struct {
	RSVPStatus string `json:"rsvp_status" binding:"required"`
	Reason     string `json:"reason"`
}

func listOptions(c *gin.Context) service.ListOptions {
	return service.ListOptions{
		IncludeArchived: queryBool(c, "include_archived"),
		LinkedOnly:      queryBool(c, "linked_only"),
		Status:          model.RSVPStatus(c.Query("status")),
		Search:          c.Query("q"),
	}
}

// ListGuests returns guests filtered by query parameters.
func (h *AdminHandler) ListGuests(c *gin.Context) {
	opts := listOptions(c)
	if opts.Status != "" && !opts.Status.Valid() {
		response.BadRequest(c, "invalid status filter")
		return
	}

	guests, err := h.guestService.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err, "failed to list guests")
		return
	}
	response.Success(c, guests)
}

func (h *AdminHandler) CreateGuest(c *gin.Context) {
	var req service.GuestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	guest, err := h.guestService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to create guest")
		return
	}
	response.Success(c, guest)
}

// ImportGuests creates every guest in the payload or none of them.
func (h *AdminHandler) ImportGuests(c *gin.Context) {
	var req ImportGuestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	guests, err := h.guestService.Import(c.Request.Context(), req.Guests)
	if err != nil {
		respondError(c, err, "failed to import guests")
		return
	}
	response.Success(c, gin.H{"imported": len(guests), "guests": guests})
}

func (h *AdminHandler) GetGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	guest, err := h.guestService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get guest")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) UpdateGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.GuestUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	guest, err := h.guestService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "failed to update guest")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) LinkGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req LinkGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.BadRequest(c, "invalid account_id")
		return
	}

	guest, err := h.guestService.Link(c.Request.Context(), id, accountID)
	if err != nil {
		respondError(c, err, "failed to link guest")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) UnlinkGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	guest, err := h.guestService.Unlink(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to unlink guest")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) ArchiveGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ArchiveGuestRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		// The body is optional; an empty one decodes as io.EOF.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	guest, err := h.guestService.Archive(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err, "failed to archive guest")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) RestoreGuest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	guest, err := h.guestService.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to restore guest")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) SetRSVPStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetRSVPStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	guest, err := h.guestService.SetRSVPStatus(c.Request.Context(), id, model.RSVPStatus(req.RSVPStatus), req.Reason)
	if err != nil {
		respondError(c, err, "failed to set rsvp status")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) MarkInvitationSent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	guest, err := h.guestService.MarkInvitationSent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to mark invitation sent")
		return
	}
	response.Success(c, guest)
}

func (h *AdminHandler) GuestHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.guestService.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to list rsvp history")
		return
	}
	response.Success(c, entries)
}

func (h *AdminHandler) GuestCommunications(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.guestService.Communications(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to list communications")
		return
	}
	response.Success(c, entries)
}

func (h *AdminHandler) BulkArchive(c *gin.Context) {
	var req BulkArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.GuestIDs))
	for _, raw := range req.GuestIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid guest id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	archived, err := h.guestService.BulkArchive(c.Request.Context(), ids, req.Reason)
	if err != nil {
		respondError(c, err, "failed to archive guests")
		return
	}
	response.Success(c, gin.H{"archived": archived})
}

// SyncAccounts creates guest records for accounts that have none.
func (h *AdminHandler) SyncAccounts(c *gin.Context) {
	result, err := h.guestService.SyncAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to sync accounts")
		return
	}
	response.Success(c, result)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.guestService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to compute stats")
		return
	}
	response.Success(c, stats)
}

// ExportCSV streams the filtered guest list as a CSV download.
func (h *AdminHandler) ExportCSV(c *gin.Context) {
	guests, err := h.guestService.List(c.Request.Context(), listOptions(c))
	if err != nil {
		respondError(c, err, "failed to export guests")
		return
	}

	filename := "guests-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	response.Attachment(c, filename, "text/csv; charset=utf-8", []byte(service.ExportCSV(guests)))
}

func (h *AdminHandler) CreateSchedule(c *gin.Context) {
	var req service.ScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	schedule, err := h.seatService.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to create schedule")
		return
	}
	response.Success(c, schedule)
}
