package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/onehorn/event-booking-backend/internal/models"
)

// GetRealIP extracts the client IP, preferring X-Real-IP, then the first
// public address in X-Forwarded-For, then gin's ClientIP.
func GetRealIP(c *gin.Context) string {
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		if ip := net.ParseIP(realIP); ip != nil && !isPrivateIP(ip) {
			return realIP
		}
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		var first string
		for _, part := range strings.Split(forwarded, ",") {
			candidate := strings.TrimSpace(part)
			ip := net.ParseIP(candidate)
			if ip == nil {
				continue
			}
			if first == "" {
				first = candidate
			}
			if !isPrivateIP(ip) && !ip.IsLoopback() {
				return candidate
			}
		}
		// all private: the first one is still the closest thing to the client
		if first != "" {
			return first
		}
	}

	return c.ClientIP()
}

// GetUserAgent extracts the User-Agent header from the request
func GetUserAgent(c *gin.Context) string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return "Unknown"
	}
	return ua
}

// ClientInfoFromRequest collects the caller details recorded in audit logs
func ClientInfoFromRequest(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{
		IPAddress: GetRealIP(c),
		UserAgent: GetUserAgent(c),
	}
}

func isPrivateIP(ip net.IP) bool {
	return ip != nil && ip.IsPrivate()
}
