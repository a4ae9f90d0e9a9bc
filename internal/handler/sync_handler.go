package handler

import (
	"assessment-sync-be/internal/pkg/logger"
	internalWS "assessment-sync-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"

	"assessment-sync-be/internal/pkg/serverutils"
)

// SyncHandler owns the realtime endpoint. Credential verification happens
// here, synchronously, before the upgrade: a bad token never gets a session.
type SyncHandler struct {
	hub    *internalWS.Hub
	rdb    *redis.Client
	logger logger.ILogger
}

func NewSyncHandler(hub *internalWS.Hub, rdb *redis.Client, log logger.ILogger) *SyncHandler {
	return &SyncHandler{
		hub:    hub,
		rdb:    rdb,
		logger: log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *SyncHandler) ServeWs(c *fiber.Ctx) error {
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	claims, err := serverutils.VerifyBearer(tokenStr)
	if err != nil {
		h.logger.Warn("SyncHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	// Revoked tokens are refused even when their signature still verifies.
	// The denylist lives in redis; without redis the check is skipped.
	if h.rdb != nil && claims.TokenID != "" {
		revoked, err := h.rdb.SIsMember(c.UserContext(), "revoked_tokens", claims.TokenID).Result()
		if err != nil {
			h.logger.Warn("SyncHandler", "Denylist check failed", map[string]interface{}{"error": err.Error()})
		} else if revoked {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token revoked"})
		}
	}

	assessorID := claims.UserID

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("SyncHandler", "Starting sync session", map[string]interface{}{"assessor_id": assessorID})
			internalWS.ServeWs(h.hub, conn, assessorID)
			h.logger.Info("SyncHandler", "Sync session ended", map[string]interface{}{"assessor_id": assessorID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the realtime routes.
func (h *SyncHandler) RegisterRoutes(router fiber.Router) {
	sync := router.Group("/sync")
	sync.Get("/ws", h.ServeWs)
}
