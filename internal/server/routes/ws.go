package routes

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/do"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RegisterWebsocket streams order_stale events to pages showing an order.
func RegisterWebsocket(injector *do.Injector, e *echo.Echo) {
	e.GET("/ws/orders/:id", func(c echo.Context) error {
		id, err := entity.ParseID(c.Param("id"))
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg("websocket upgrade failed")
			return nil
		}

		hub := do.MustInvoke[*notify.Hub](injector)
		client := notify.NewClient(conn)
		hub.Register(id, client)
		defer func() {
			hub.Unregister(id, client)
			client.Close()
		}()

		client.Wait()
		return nil
	})
}
