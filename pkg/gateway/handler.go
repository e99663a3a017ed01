package gateway

import (
	"context"
	"time"

	"github.com/gobwas/ws"
	"github.com/labstack/echo"
	"github.com/nsyszr/msgbroker/pkg/auth"
	"github.com/nsyszr/msgbroker/pkg/broker"
	"github.com/nsyszr/msgbroker/pkg/gateway/websocket"
	log "github.com/sirupsen/logrus"
)

// DefaultHistoryWindow is used for GET_HISTORY_MESSAGES unless configured.
const DefaultHistoryWindow = 7 * 24 * time.Hour

// Options configures a Handler. Broker and Authenticator are required.
type Options struct {
	Broker        *broker.Broker
	Authenticator auth.Authenticator
	ResolveOrigin OriginResolver
	OutboxSize    int
	HistoryWindow time.Duration
}

// Handler upgrades HTTP requests to websocket connections and serves the
// broker protocol on them.
type Handler struct {
	broker        *broker.Broker
	auth          auth.Authenticator
	resolveOrigin OriginResolver
	outboxSize    int
	historyWindow time.Duration
}

// NewHandler creates a new websocket handler
func NewHandler(opts Options) *Handler {
	h := &Handler{
		broker:        opts.Broker,
		auth:          opts.Authenticator,
		resolveOrigin: opts.ResolveOrigin,
		outboxSize:    opts.OutboxSize,
		historyWindow: opts.HistoryWindow,
	}
	if h.resolveOrigin == nil {
		h.resolveOrigin = RealIP
	}
	if h.outboxSize <= 0 {
		h.outboxSize = websocket.DefaultOutboxSize
	}
	if h.historyWindow <= 0 {
		h.historyWindow = DefaultHistoryWindow
	}
	return h
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register gateway routes")
	e.GET("/", h.connectionHandler())
	e.GET("/ws", h.connectionHandler())
}

func (h *Handler) connectionHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		origin := h.resolveOrigin(c)

		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.WithField("ip", origin).Warnf("gateway failed to upgrade connection: %v", err)
			return err
		}

		driver := websocket.NewDriver(conn, h.outboxSize)
		driver.Start()
		defer driver.Wait()
		defer driver.Close()

		log.WithField("ip", origin).Info("gateway accepted connection")

		cs := newConnection(h, driver, origin)
		cs.serve(context.Background())

		log.Debug("handler exit connection handler func")
		return nil
	}
}
