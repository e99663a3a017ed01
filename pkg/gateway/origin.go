package gateway

import (
	"strings"

	"github.com/labstack/echo"
)

const unknownOrigin = "Unknown"

// OriginResolver returns the address a request originates from.
type OriginResolver func(c echo.Context) string

// RealIP resolves the origin from X-Forwarded-For, X-Real-IP or the remote
// address, in that order.
func RealIP(c echo.Context) string {
	return FormatIP(c.RealIP())
}

// FormatIP collapses IPv4-mapped IPv6 addresses to IPv4 and the IPv6
// loopback to 127.0.0.1.
func FormatIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return unknownOrigin
	}

	if strings.Contains(ip, ":") && strings.Contains(ip, ".") {
		return ip[strings.LastIndex(ip, ":")+1:]
	}
	if ip == "::1" || ip == "::" {
		return "127.0.0.1"
	}
	return ip
}
