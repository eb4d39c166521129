package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "pdf-chatbot-backend/internal/app"
	"pdf-chatbot-backend/internal/bootstrap"
	"pdf-chatbot-backend/internal/cache"
	"pdf-chatbot-backend/internal/transport/http/handler"
	"pdf-chatbot-backend/internal/transport/http/middleware"
)

const rateLimitWindow = time.Minute

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	documentService := appsvc.NewDocumentService(app.Store, app.Answerer, app.Observer)
	documentHandler := handler.NewDocumentHandler(documentService, app.Config.MaxUploadBytes())

	router.POST("/upload", documentHandler.Upload)
	router.GET("/documents", documentHandler.List)

	queryGroup := router.Group("")
	if app.Redis != nil && app.Config.RateLimit.RequestsPerMinute > 0 {
		counter := cache.NewRateCounter(app.Redis, rateLimitWindow)
		queryGroup.Use(middleware.RateLimit(counter, "query", int64(app.Config.RateLimit.RequestsPerMinute)))
	}
	for _, path := range []string{"/query", "/ask"} {
		queryGroup.POST(path, documentHandler.Query)
		queryGroup.OPTIONS(path, documentHandler.Preflight)
	}

	return router
}
