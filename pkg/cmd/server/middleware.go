package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"
)

// logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			reqSize, perr := strconv.ParseInt(req.Header.Get(echo.HeaderContentLength), 10, 0)
			if perr != nil {
				reqSize = 0
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			entry := log.WithFields(log.Fields{
				"id":            req.Header.Get(echo.HeaderXRequestID),
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			})

			// Websocket requests are logged when they end, which is only
			// interesting at debug level.
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				entry.Debugf("%s %s %s upgraded", req.Method, req.RequestURI, req.Proto)
				return err
			}
			entry.Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}
