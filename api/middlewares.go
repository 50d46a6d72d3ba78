package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) statsdMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Milliseconds()

		// Send metrics to statsd
		_ = s.sdClient.Incr("http.requests", []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Timing("http.response_time", time.Duration(duration)*time.Millisecond, []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Incr("http.status."+fmt.Sprint(c.Response().Status), []string{"path:" + c.Path(), "method:" + c.Request().Method}, 1)

		return err
	}
}

// agentAuthMiddleware authenticates agents by API key. Only the SHA-256 of
// the key is stored, so a database leak does not expose usable credentials.
func (s *Server) agentAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing Authorization header"})
		}

		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		if apiKey == "" || apiKey == authHeader {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid Authorization header"})
		}

		hash := sha256.Sum256([]byte(apiKey))
		record, err := s.db.GetAgentAPIKeyByHash(c.Request().Context(), hex.EncodeToString(hash[:]))
		if err != nil {
			s.logger.Warnf("fail to validate api key, err: %v", err)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
		}

		c.Set("agent_id", record.AgentID)
		return next(c)
	}
}
