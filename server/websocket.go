package server

import (
	"net/http"

	"github.com/chaos-io/maskbrush/pointer"
	"github.com/chaos-io/maskbrush/session"
	"github.com/chaos-io/maskbrush/util"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Pointer 指针事件流，每条消息是一次 down/move/up/leave/cancel
//
// 同一连接上的事件按到达顺序交给会话处理，手势结束时回复完整状态。
func (h *Handler) Pointer(c *gin.Context) {
	s := current(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		util.Logger.Warn("websocket upgrade failed", zap.String("session", s.ID()), zap.Error(err))
		return
	}
	defer func() {
		// 断开连接等同于失去指针捕获
		_, _ = s.Pointer(pointer.Event{Type: pointer.EventCancel})
		_ = conn.Close()
	}()

	for {
		var msg pointerMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				util.Logger.Warn("websocket read failed", zap.String("session", s.ID()), zap.Error(err))
			}
			return
		}

		ack := handlePointer(s, msg)
		if err := conn.WriteJSON(ack); err != nil {
			util.Logger.Warn("websocket write failed", zap.String("session", s.ID()), zap.Error(err))
			return
		}
	}
}

func handlePointer(s *session.Session, msg pointerMsg) pointerAck {
	typ, err := pointer.ParseEventType(msg.Type)
	if err != nil {
		return pointerAck{Error: err.Error()}
	}

	drew, err := s.Pointer(pointer.Event{Type: typ, X: msg.X, Y: msg.Y, Viewport: msg.Viewport})
	if err != nil {
		return pointerAck{Drew: drew, Error: err.Error()}
	}

	drawing, cursor := s.Gesture()
	ack := pointerAck{Drew: drew, Drawing: drawing, Cursor: cursor}
	if typ == pointer.EventMove || typ == pointer.EventDown {
		return ack
	}
	st, err := s.State()
	if err != nil {
		ack.Error = err.Error()
		return ack
	}
	ack.State = &st
	return ack
}
