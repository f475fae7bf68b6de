// Package server exposes the gateway over HTTP. The conversation endpoint
// streams NDJSON: one envelope JSON object per line, flushed as soon as it
// is produced so clients render progressively.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"llmgate/gateway"
	"llmgate/providers/observability"
)

const ndjsonContentType = "application/x-ndjson"

// Server wraps the echo engine with the gateway routes registered.
type Server struct {
	echo    *echo.Echo
	gateway *gateway.Gateway
}

// New builds the HTTP server around a ready gateway. A non-nil observer is
// attached to every request context so the gateway's spans and logs flow
// through it.
func New(gw *gateway.Gateway, observer observability.Provider) *Server {
	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Use(middleware.Recover())
	if observer != nil {
		engine.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				request := c.Request()
				ctx := observability.ContextWithObserver(request.Context(), observer)
				c.SetRequest(request.WithContext(ctx))
				return next(c)
			}
		})
	}

	server := &Server{echo: engine, gateway: gw}
	engine.POST("/api/conversation", server.handleConversation)
	engine.GET("/api/ping", server.handlePing)
	engine.GET("/api/info", server.handleInfo)
	return server
}

// Start blocks serving on the given address until the listener fails or
// Shutdown is called.
func (server *Server) Start(address string) error {
	return server.echo.Start(address)
}

// Shutdown drains in-flight requests and stops the listener.
func (server *Server) Shutdown(ctx context.Context) error {
	return server.echo.Shutdown(ctx)
}

// Handler exposes the routes for tests.
func (server *Server) Handler() http.Handler {
	return server.echo
}

// handleConversation runs one turn and streams its envelopes as NDJSON.
// The gateway produces the terminal error envelope itself for anything
// that goes wrong after the headers are sent, so the HTTP status is always
// 200 once streaming starts; only a body that does not bind fails with 400.
func (server *Server) handleConversation(c echo.Context) error {
	var request gateway.ConversationRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	}

	response := c.Response()
	response.Header().Set(echo.HeaderContentType, ndjsonContentType)
	response.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(response)
	for envelope := range server.gateway.Converse(c.Request().Context(), request) {
		if err := encoder.Encode(envelope); err != nil {
			// The client went away mid-write; the context cancellation
			// stops the gateway on its own.
			return nil
		}
		response.Flush()
	}
	return nil
}

func (server *Server) handlePing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (server *Server) handleInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service":   "llmgate",
		"providers": server.gateway.Providers(),
	})
}
