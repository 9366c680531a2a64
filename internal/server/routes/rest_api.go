package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/usecase"
)

func RegisterRestAPI(injector *do.Injector, e *echo.Echo) {
	g := e.Group("/api")

	g.POST("/order-items/:id/deploy", func(c echo.Context) error {
		id, err := entity.ParseID(c.Param("id"))
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		usecase := do.MustInvoke[usecase.DeployOrderItemUsecase](injector)
		result := usecase.Execute(c.Request().Context(), id)
		return c.JSON(statusOf(result), result)
	})
	g.POST("/orders/:id/deploy", func(c echo.Context) error {
		id, err := entity.ParseID(c.Param("id"))
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		usecase := do.MustInvoke[usecase.DeployOrderUsecase](injector)
		results, err := usecase.Execute(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				return c.NoContent(http.StatusNotFound)
			}
			return c.NoContent(http.StatusInternalServerError)
		}

		type response struct {
			Results []entity.DeployResult `json:"results"`
		}
		return c.JSON(http.StatusOK, &response{Results: results})
	})
	g.GET("/order-items/:id/deployment", func(c echo.Context) error {
		id, err := entity.ParseID(c.Param("id"))
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		usecase := do.MustInvoke[usecase.GetDeploymentUsecase](injector)
		unit, err := usecase.Execute(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				return c.NoContent(http.StatusNotFound)
			}
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, unit)
	})
	g.DELETE("/order-items/:id/deployment", func(c echo.Context) error {
		id, err := entity.ParseID(c.Param("id"))
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		usecase := do.MustInvoke[usecase.DeleteDeploymentUsecase](injector)
		result := usecase.Execute(c.Request().Context(), id)
		return c.JSON(statusOf(result), result)
	})
}

// statusOf maps a pipeline result to the HTTP status of its response.
func statusOf(result entity.DeployResult) int {
	if result.OK {
		return http.StatusOK
	}
	switch result.Kind {
	case entity.FailureNotFound:
		return http.StatusNotFound
	case entity.FailureNotPaid:
		return http.StatusPaymentRequired
	case entity.FailureBusy, entity.FailureConflict, entity.FailureNotDeployed:
		return http.StatusConflict
	case entity.FailureTemplateMissing, entity.FailureBuildFailed, entity.FailureOutputMissing:
		return http.StatusUnprocessableEntity
	case entity.FailurePublishFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
