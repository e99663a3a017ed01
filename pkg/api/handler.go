package api

import (
	"github.com/labstack/echo"
	"github.com/nsyszr/msgbroker/pkg/broker"
	log "github.com/sirupsen/logrus"
)

// Handler serves read-only views of the broker state
type Handler struct {
	broker *broker.Broker
}

// NewHandler create a new API handler
func NewHandler(b *broker.Broker) *Handler {
	return &Handler{
		broker: b,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api")
	api.GET("/messages", h.handleFetchMessages)
	api.GET("/topics", h.handleFetchTopics)
	api.GET("/scheduled", h.handleFetchScheduled)

	e.GET("/healthz", h.handleHealth)
}
