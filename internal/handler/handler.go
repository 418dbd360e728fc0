package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medidown/internal/history"
	"medidown/internal/service"
	"medidown/internal/sign"
)

type Handler struct {
	services *service.Service
	signer   *sign.Signer
	history  *history.Repository
}

func NewHandler(services *service.Service, signer *sign.Signer, history *history.Repository) *Handler {
	return &Handler{
		services: services,
		signer:   signer,
		history:  history,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/health", h.health)

	api := router.Group("/api")
	{
		api.POST("/download", h.startDownload)
		api.GET("/tasks", h.listTasks)
		api.GET("/task/:id", h.taskStatus)
		api.DELETE("/task/:id", h.cancelTask)
		api.GET("/task/:id/file", h.taskFile)
		api.GET("/history", h.listHistory)
		api.GET("/sign", h.signLink)
		api.GET("/direct/:token", h.directLink)
	}

	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
