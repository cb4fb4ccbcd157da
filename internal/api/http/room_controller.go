package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamforge/signaling/internal/api/http/converter"
	"github.com/teamforge/signaling/internal/registry"
	"github.com/teamforge/signaling/internal/service"
)

// RoomController exposes read-only membership snapshots for operators.
// Rooms are created and destroyed by the relay itself; there is no CRUD here.
type RoomController struct {
	relay service.RelayInteractor
}

func NewRoomController(relay service.RelayInteractor) *RoomController {
	return &RoomController{relay: relay}
}

func (c *RoomController) ListRooms(ctx *gin.Context) {
	rooms, err := c.relay.Rooms(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]*converter.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, converter.RoomToApi(room))
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": resp})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	roomID := ctx.Param("roomID")
	if roomID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "room id is required"})
		return
	}

	room, err := c.relay.Room(ctx.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, registry.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}
