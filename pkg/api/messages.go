package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/nsyszr/msgbroker/pkg/api/resource"
)

func (h *Handler) handleFetchMessages(c echo.Context) error {
	m, err := h.broker.Messages(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, resource.NewError(err))
	}

	return c.JSON(http.StatusOK, m)
}

func (h *Handler) handleFetchTopics(c echo.Context) error {
	topics, err := h.broker.Topics(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, resource.NewError(err))
	}

	return c.JSON(http.StatusOK, topics)
}

func (h *Handler) handleFetchScheduled(c echo.Context) error {
	pending, err := h.broker.Pending(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, resource.NewError(err))
	}

	return c.JSON(http.StatusOK, pending)
}
