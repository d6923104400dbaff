package api

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/chat"
	"github.com/Nishan666/roomchat/internal/ws"
)

type socketCommand struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// chatSocket gives the connection its own synchronization core: the client's
// session decides the active room, every published view is pushed down the
// socket, and the core is torn down with the connection so no listener
// outlives its client.
func (s *Server) chatSocket(conn *websocket.Conn) {
	email, _ := conn.Locals("email").(string)

	client := ws.NewClient(email, conn)
	go client.WritePump()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := s.sessions.ForUser(email)
	if err := sess.Load(ctx); err != nil {
		s.log.Error("session load", zap.String("user", email), zap.Error(err))
		return
	}

	core := chat.NewCore(s.store, s.sender, sess, s.log, true, func(v chat.View) {
		client.Send(v)
	})
	defer core.Unsubscribe()

	if err := core.SubscribeActive(ctx); err != nil {
		s.log.Error("subscribe", zap.String("user", email), zap.Error(err))
	}

	roomID := ""
	if room := sess.Room(); room != nil {
		roomID = room.RoomID
		s.hub.Join(roomID, client)
		s.hub.Announce(roomID, "joined", email)
	}
	defer func() {
		if roomID != "" {
			s.hub.Leave(roomID, client)
			s.hub.Announce(roomID, "left", email)
		}
	}()

	for {
		var cmd socketCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Type {
		case "input":
			core.SetInput(cmd.Text)
		case "send":
			if err := core.Send(ctx); err != nil {
				client.Send(map[string]string{"error": err.Error()})
			}
		case "exit":
			core.HandleExitPress()
		case "confirm_exit":
			if err := core.ConfirmExit(ctx); err != nil {
				client.Send(map[string]string{"error": err.Error()})
				continue
			}
			if roomID != "" {
				s.hub.Leave(roomID, client)
				s.hub.Announce(roomID, "left", email)
				roomID = ""
			}
		case "cancel_exit":
			core.CancelExit()
		}
	}
}
