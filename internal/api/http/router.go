package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const signalAliasPath = "/api/signal/ws"

type RouterConfig struct {
	AllowedOrigins []string
	WSPath         string
	InternalAPIKey string
}

func SetupRouter(
	cfg RouterConfig,
	signalController *SignalController,
	notifyController *NotifyController,
	iceController *ICEController,
) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = cfg.AllowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	if signalController != nil {
		wsPath := cfg.WSPath
		if wsPath == "" {
			wsPath = "/ws"
		}
		router.GET(wsPath, signalController.Connect)
		if wsPath != signalAliasPath {
			router.GET(signalAliasPath, signalController.Connect)
		}
	}

	api := router.Group("/api")

	if iceController != nil {
		api.GET("/ice-servers", iceController.ListServers)
	}

	if notifyController != nil {
		internal := router.Group("/internal", requireInternalKey(cfg.InternalAPIKey))
		internal.GET("/stats", notifyController.Stats)

		notify := internal.Group("/notify")
		notify.POST("/doctors/:doctorID", notifyController.NotifyDoctor)
		notify.POST("/admins", notifyController.NotifyAdmins)
		notify.POST("/rooms/:consultationID", notifyController.NotifyRoom)
		notify.POST("/all", notifyController.NotifyAll)
	}

	return router
}
