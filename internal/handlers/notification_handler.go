package handlers

import (
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	notifyws "github.com/customadesign/acfl-booking-api/internal/websocket"
	"github.com/customadesign/acfl-booking-api/pkg/utils"
)

// NotificationHandler upgrades authenticated portal connections onto the
// booking notification hub.
type NotificationHandler struct {
	hub       *notifyws.Hub
	jwtSecret string
}

func NewNotificationHandler(hub *notifyws.Hub, jwtSecret string) *NotificationHandler {
	return &NotificationHandler{hub: hub, jwtSecret: jwtSecret}
}

func (h *NotificationHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *NotificationHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := notifyws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

// Browsers cannot set headers on WebSocket dials, so the token may arrive as
// a query parameter instead of an Authorization header.
func (h *NotificationHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		if bearer, ok := utils.BearerToken(c.Get("Authorization")); ok {
			tokenString = bearer
		}
	}
	return utils.ValidateToken(tokenString, h.jwtSecret)
}
