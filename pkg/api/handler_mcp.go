package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

// ClientSummaryDTO groups sessions by the client that opened them.
type ClientSummaryDTO struct {
	ClientType    string `json:"client_type"`
	ClientVersion string `json:"client_version,omitempty"`
	ActiveCount   int    `json:"active_count"`
}

// mcpClientsHandler handles GET /api/mcp/clients.
func (s *Server) mcpClientsHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "mcp_session", "mcp_session:read", "*"); err != nil {
		return err
	}
	sessions, err := s.store.ListSessions(c.Request().Context(), true)
	if err != nil {
		return mapServiceError(err)
	}

	byClient := make(map[string]*ClientSummaryDTO)
	order := make([]string, 0)
	for _, sess := range sessions {
		key := sess.ClientType + "@" + sess.ClientVersion
		summary, ok := byClient[key]
		if !ok {
			summary = &ClientSummaryDTO{ClientType: sess.ClientType, ClientVersion: sess.ClientVersion}
			byClient[key] = summary
			order = append(order, key)
		}
		summary.ActiveCount++
	}

	out := make([]ClientSummaryDTO, len(order))
	for i, key := range order {
		out[i] = *byClient[key]
	}
	return c.JSON(http.StatusOK, out)
}

// mcpSessionsHandler handles GET /api/mcp/sessions.
func (s *Server) mcpSessionsHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "mcp_session", "mcp_session:read", "*"); err != nil {
		return err
	}
	sessions, err := s.store.ListSessions(c.Request().Context(), c.QueryParam("active_only") == "true")
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// mcpSessionHandler handles GET /api/mcp/sessions/:id.
func (s *Server) mcpSessionHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "mcp_session", "mcp_session:read", "*"); err != nil {
		return err
	}
	sess, err := s.store.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

// mcpHealthHandler handles GET /api/mcp/sessions/health.
func (s *Server) mcpHealthHandler(c *echo.Context) error {
	sessions, err := s.store.ListSessions(c.Request().Context(), true)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: map[string]string{"active_sessions": strconv.Itoa(len(sessions))},
	})
}

// mcpReconnectHandler handles POST /api/mcp/sessions/:id/reconnect.
func (s *Server) mcpReconnectHandler(c *echo.Context) error {
	var req ReconnectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sessionID, err := s.sessions.Reconnect(c.Request().Context(), c.Param("id"), req.Token)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": sessionID})
}

// mcpTokenHandler handles GET /api/mcp/sessions/:id/token, issuing a fresh
// reconnect token for a session the caller already knows the id of.
func (s *Server) mcpTokenHandler(c *echo.Context) error {
	token, err := s.sessions.IssueReconnectToken(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: token})
}
