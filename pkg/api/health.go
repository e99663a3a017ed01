package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/nsyszr/msgbroker/pkg/api/resource"
)

func (h *Handler) handleHealth(c echo.Context) error {
	st, err := h.broker.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, resource.NewHealth(resource.HealthStatusDown, nil))
	}

	return c.JSON(http.StatusOK, resource.NewHealth(resource.HealthStatusUp, &st))
}
