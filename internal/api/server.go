package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/chat"
	"github.com/Nishan666/roomchat/internal/config"
	"github.com/Nishan666/roomchat/internal/media"
	"github.com/Nishan666/roomchat/internal/notify"
	"github.com/Nishan666/roomchat/internal/rooms"
	"github.com/Nishan666/roomchat/internal/session"
	"github.com/Nishan666/roomchat/internal/ws"
)

// SessionFactory hands out the per-user session store and the underlying KV
// namespace, which the settings handlers share.
type SessionFactory interface {
	ForUser(userID string) *session.Store
	KVForUser(userID string) session.KV
}

type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	rooms    *rooms.Repository
	store    chat.MessageStore
	sender   *chat.Sender
	inbox    *notify.Inbox
	media    *media.Service
	hub      *ws.Hub
	sessions SessionFactory
}

func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	roomRepo *rooms.Repository,
	msgStore chat.MessageStore,
	sender *chat.Sender,
	inbox *notify.Inbox,
	mediaSvc *media.Service,
	hub *ws.Hub,
	sessions SessionFactory,
) *fiber.App {
	app := fiber.New()
	app.Use(fiberlogger.New())

	s := &Server{
		cfg:      cfg,
		log:      log,
		rooms:    roomRepo,
		store:    msgStore,
		sender:   sender,
		inbox:    inbox,
		media:    mediaSvc,
		hub:      hub,
		sessions: sessions,
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1")
	api.Use(RateLimit(cfg.RateLimit.PerMinute, log))
	api.Use(JWTAuth(cfg.App.JWTSecret, log))

	api.Get("/rooms", s.listRooms)
	api.Post("/rooms", s.createRoom)
	api.Post("/rooms/:room_id/join", s.joinRoom)
	api.Post("/messages", s.sendMessage)
	api.Get("/notifications", s.listNotifications)
	api.Post("/profile", s.saveProfile)
	api.Delete("/session", s.logout)
	api.Get("/settings", s.getSettings)
	api.Put("/settings", s.updateSettings)
	api.Post("/settings/biometrics", s.toggleBiometrics)
	api.Put("/settings/permissions", s.updatePermission)
	api.Post("/settings/reconcile", s.reconcilePermissions)
	if mediaSvc != nil {
		api.Post("/media", s.uploadMedia)
	}
	api.Get("/ws", websocket.New(s.chatSocket))

	return app
}
