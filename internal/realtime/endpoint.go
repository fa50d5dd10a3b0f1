package realtime

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/pkg/utils"
)

// DriverSessions is told when a driver's presence changes.
type DriverSessions interface {
	DriverConnected(ctx context.Context, driverID uuid.UUID) error
	DriverDisconnected(ctx context.Context, driverID uuid.UUID)
}

// Endpoint upgrades authenticated HTTP requests to websocket clients.
type Endpoint struct {
	hub      *Hub
	secret   string
	drivers  MessageHandler
	sessions DriverSessions
	upgrader websocket.Upgrader
}

func NewEndpoint(hub *Hub, secret string, drivers MessageHandler, sessions DriverSessions) *Endpoint {
	return &Endpoint{
		hub:      hub,
		secret:   secret,
		drivers:  drivers,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (e *Endpoint) RegisterRoutes(router *gin.Engine) {
	ws := router.Group("/ws")
	{
		ws.GET("/drivers", e.ServeDrivers)
		ws.GET("/notifications", e.ServeNotifications)
	}
}

// authenticate checks the token query parameter against the allowed roles.
func (e *Endpoint) authenticate(c *gin.Context, roles ...user.Role) (uuid.UUID, bool) {
	token := c.Query("token")
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Token required")
		return uuid.Nil, false
	}
	claims, err := utils.ValidateToken(token, e.secret)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
		return uuid.Nil, false
	}
	for _, r := range roles {
		if claims.Role == string(r) {
			return claims.UserID, true
		}
	}
	utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
	return uuid.Nil, false
}

func (e *Endpoint) ServeDrivers(c *gin.Context) {
	driverID, ok := e.authenticate(c, user.RoleDriver)
	if !ok {
		return
	}
	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.String("driver_id", driverID.String()), zap.Error(err))
		return
	}

	ctx := c.Request.Context()
	client := NewClient(e.hub, conn, AudienceDrivers, driverID, e.drivers)
	client.Register()
	if e.sessions != nil {
		if err := e.sessions.DriverConnected(ctx, driverID); err != nil {
			logger.Error("Failed to deliver pending route", zap.String("driver_id", driverID.String()), zap.Error(err))
		}
	}

	if client.Serve(ctx) && e.sessions != nil {
		e.sessions.DriverDisconnected(ctx, driverID)
	}
}

func (e *Endpoint) ServeNotifications(c *gin.Context) {
	userID, ok := e.authenticate(c, user.RoleAdmin, user.RoleOperator)
	if !ok {
		return
	}
	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	client := NewClient(e.hub, conn, AudienceWeb, userID, nil)
	client.Register()
	client.Serve(c.Request.Context())
}
