package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/chat"
	"github.com/Nishan666/roomchat/internal/models"
	"github.com/Nishan666/roomchat/internal/session"
)

func identity(c *fiber.Ctx) (email, nickname string) {
	email, _ = c.Locals("email").(string)
	nickname, _ = c.Locals("nickname").(string)
	return email, nickname
}

func (s *Server) listRooms(c *fiber.Ctx) error {
	list, err := s.rooms.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"rooms": list})
}

type createRoomReq struct {
	Name string `json:"name"`
}

func (s *Server) createRoom(c *fiber.Ctx) error {
	var req createRoomReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "room name is required")
	}

	_, nickname := identity(c)
	room, err := s.rooms.Create(c.Context(), req.Name, nickname)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

type joinRoomReq struct {
	FCMToken string `json:"fcm_token"`
}

// joinRoom upserts the caller's membership record and selects the room in
// their session. Rejoining overwrites the previous record instead of adding
// a second one.
func (s *Server) joinRoom(c *fiber.Ctx) error {
	roomID := c.Params("room_id")
	email, _ := identity(c)

	var req joinRoomReq
	_ = c.BodyParser(&req)

	room, err := s.rooms.Get(c.Context(), roomID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "room not found")
	}

	p := &models.Participant{
		RoomID:   roomID,
		UserID:   email,
		Email:    email,
		FCMToken: req.FCMToken,
	}
	if err := s.rooms.SaveParticipant(c.Context(), p); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	sess := s.sessions.ForUser(email)
	if err := sess.SaveRoom(c.Context(), session.RoomSelection{RoomID: room.ID, RoomName: room.Name}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if req.FCMToken != "" {
		_ = sess.SaveFCMToken(c.Context(), req.FCMToken)
	}

	return c.JSON(fiber.Map{"room": room, "participant": p})
}

type sendMessageReq struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	email, nickname := identity(c)
	err := s.sender.Send(c.Context(), req.Text, email, nickname, req.RoomID)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "sent"})
	case errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMissingContext):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		s.log.Error("send message", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func (s *Server) listNotifications(c *fiber.Ctx) error {
	email, _ := identity(c)
	list, err := s.inbox.ListForUser(c.Context(), email, int64(c.QueryInt("limit", 50)))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"notifications": list})
}

type saveProfileReq struct {
	Nickname string `json:"nickname"`
}

func (s *Server) saveProfile(c *fiber.Ctx) error {
	var req saveProfileReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if req.Nickname == "" {
		return fiber.NewError(fiber.StatusBadRequest, "nickname is required")
	}

	email, _ := identity(c)
	sess := s.sessions.ForUser(email)
	if err := sess.SaveProfile(c.Context(), session.Profile{Nickname: req.Nickname, Email: email}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "saved"})
}

func (s *Server) logout(c *fiber.Ctx) error {
	email, _ := identity(c)
	if err := s.sessions.ForUser(email).ClearAll(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

func (s *Server) uploadMedia(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file")
	}

	email, _ := identity(c)
	up, err := s.media.UploadImage(c.Context(), email, data)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(up)
}
