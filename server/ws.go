package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/prompt"
	"github.com/rafalkola/language-ai-bot/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsFrame is one client command or server reply on the socket. The client
// sends {type, ...fields}; the server answers with the same type plus the
// session state, or type "error".
type wsFrame struct {
	Type     string   `json:"type"`
	UserID   string   `json:"user_id,omitempty"`
	Language string   `json:"language,omitempty"`
	Level    string   `json:"level,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Message  string   `json:"message,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	State    string   `json:"state,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// handleWebSocket relays socket frames onto the session lifecycle. One
// connection serves one user; the user id comes from the first frame and
// is pinned for the connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()
	userID := ""

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SERVER] WebSocket read error: %v", err)
			}
			return nil
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			writeFrame(conn, wsFrame{Type: "error", Error: "invalid frame"})
			continue
		}

		if userID == "" {
			if frame.UserID == "" {
				writeFrame(conn, wsFrame{Type: "error", Error: "user_id is required on the first frame"})
				continue
			}
			userID = frame.UserID
		}

		reply := s.dispatchFrame(ctx, userID, frame)
		writeFrame(conn, reply)
	}
}

func (s *Server) dispatchFrame(ctx context.Context, userID string, frame wsFrame) wsFrame {
	out := wsFrame{Type: frame.Type, UserID: userID}

	err := s.withSession(userID, func(sess *session.Session) error {
		switch frame.Type {
		case "start":
			if !core.ValidLanguage(frame.Language) {
				return errors.New("unsupported language")
			}
			level, ok := core.ParseLevel(frame.Level)
			if !ok {
				return errors.New("unsupported level")
			}
			welcome, err := sess.Start(ctx, frame.Language, level)
			out.Message = welcome
			out.State = sess.State().String()
			return err
		case "mode":
			mode, ok := prompt.ParseMode(frame.Mode)
			if !ok {
				return errors.New("unsupported mode")
			}
			response, err := sess.SelectMode(ctx, mode)
			out.Message = response
			out.State = sess.State().String()
			return err
		case "chat":
			reply, err := sess.Chat(ctx, frame.Message)
			out.Message = reply
			out.State = sess.State().String()
			return err
		case "end":
			eval, err := sess.EndLesson(ctx)
			if err == nil {
				out.Message = eval.Summary
				out.Score = eval.Score
			}
			out.State = sess.State().String()
			return err
		case "reset":
			sess.Reset()
			out.State = sess.State().String()
			return nil
		default:
			return errors.New("unknown frame type")
		}
	})
	if err != nil {
		return wsFrame{Type: "error", UserID: userID, Error: err.Error(), State: out.State}
	}
	return out
}

func writeFrame(conn *websocket.Conn, frame wsFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[SERVER] WebSocket write error: %v", err)
	}
}
