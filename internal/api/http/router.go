package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(relayController *RelayController, roomController *RoomController) *gin.Engine {
	router := gin.Default()

	// The relay carries no credentials and trusts its network; see the
	// deployment notes before exposing it publicly.
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	if relayController != nil {
		router.GET("/ws", relayController.Serve)
	}

	api := router.Group("/api")

	if roomController != nil {
		rooms := api.Group("/rooms")
		rooms.GET("", roomController.ListRooms)
		rooms.GET("/:roomID", roomController.GetRoom)
	}

	if relayController != nil {
		api.GET("/webrtc/ice-servers", relayController.ICEServers)
	}

	return router
}
