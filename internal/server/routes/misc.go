package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"github.com/yz4230/sitehost/internal/metrics"
)

func RegisterMisc(injector *do.Injector, e *echo.Echo) {
	e.GET("/api/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(do.MustInvoke[*metrics.Metrics](injector).Handler()))
}
