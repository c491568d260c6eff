package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-booking-api/internal/service"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/response"
)

// RoomChangeHandler exposes room substitution endpoints.
type RoomChangeHandler struct {
	changes *service.RoomChangeService
}

// NewRoomChangeHandler constructs RoomChangeHandler.
func NewRoomChangeHandler(changes *service.RoomChangeService) *RoomChangeHandler {
	return &RoomChangeHandler{changes: changes}
}

// Create godoc
// @Summary Move a booking or session to a different room
// @Tags RoomChanges
// @Accept json
// @Produce json
// @Param payload body service.RoomChangeRequest true "Room change payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /room-changes [post]
func (h *RoomChangeHandler) Create(c *gin.Context) {
	var req service.RoomChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	change, err := h.changes.RequestRoomChange(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, change)
}

// List godoc
// @Summary List the room change audit trail
// @Tags RoomChanges
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /room-changes [get]
func (h *RoomChangeHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	changes, pagination, err := h.changes.ListChanges(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, pagination)
}
