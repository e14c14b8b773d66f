package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/janusgate/backend/internal/janus"
)

// RoomHandler maps the room REST surface onto the Janus room service.
type RoomHandler struct {
	rooms  *janus.RoomService
	logger *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *janus.RoomService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:  rooms,
		logger: logger,
	}
}

// Request DTOs
type CreateRoomRequest struct {
	Description string  `json:"room_description" binding:"required,min=1,max=255"`
	Secret      *string `json:"secret"`
}

type UpdateRoomRequest struct {
	NewDescription *string `json:"new_description"`
	NewSecret      *string `json:"new_secret"`
	Secret         *string `json:"secret"`
}

type DestroyRoomRequest struct {
	Secret *string `json:"secret"`
}

// CreateRoom handles POST /rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid create room request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_description required"})
		return
	}

	details, err := h.rooms.CreateRoom(c.Request.Context(), req.Description, req.Secret)
	if err != nil {
		h.handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, details)
}

// ListRooms handles GET /rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		h.handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// ListParticipants handles GET /rooms/:room_id/participants
func (h *RoomHandler) ListParticipants(c *gin.Context) {
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	participants, err := h.rooms.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		h.handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, participants)
}

// UpdateRoom handles PATCH /rooms/:room_id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid update room request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	update := janus.RoomUpdate{
		NewDescription: req.NewDescription,
		NewSecret:      req.NewSecret,
		Secret:         req.Secret,
	}

	if err := h.rooms.UpdateRoom(c.Request.Context(), roomID, update); err != nil {
		h.handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DestroyRoom handles DELETE /rooms/:room_id
func (h *RoomHandler) DestroyRoom(c *gin.Context) {
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	// Body is optional; a private room needs its secret.
	var req DestroyRoomRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.rooms.DestroyRoom(c.Request.Context(), roomID, req.Secret); err != nil {
		h.handleGatewayError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RoomHandler) roomID(c *gin.Context) (int64, bool) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room id"})
		return 0, false
	}
	return roomID, true
}

// handleGatewayError maps janus failures to HTTP responses: unreachable is
// retryable (503), an explicit gateway rejection is not (502), and anything
// unrecognized is contract drift (500) logged loudly for investigation.
func (h *RoomHandler) handleGatewayError(c *gin.Context, err error) {
	var gwErr *janus.GatewayError

	switch {
	case errors.Is(err, janus.ErrGatewayUnreachable):
		h.logger.Warn("⚠️ [Handler] Janus unreachable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not connect to media gateway"})
	case errors.As(err, &gwErr):
		h.logger.Warn("⚠️ [Handler] Janus rejected request", "code", gwErr.Code, "reason", gwErr.Reason)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Janus API Error: " + strconv.Itoa(gwErr.Code) + " " + gwErr.Reason})
	case errors.Is(err, janus.ErrUnexpectedResponse):
		h.logger.Error("❌ [Handler] Unexpected Janus response", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected media gateway response"})
	default:
		h.logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
