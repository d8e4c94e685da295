package server

import (
	"github.com/chaos-io/maskbrush/mask"
	"github.com/chaos-io/maskbrush/pointer"
	"github.com/chaos-io/maskbrush/session"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Response 通用成功响应
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type createResp struct {
	ID string `json:"id"`
}

type uploadResp struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type removalResp struct {
	RequestID string        `json:"request_id,omitempty"`
	Dropped   bool          `json:"dropped"`
	State     session.State `json:"state"`
}

type clickReq struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Mode string `json:"mode"`
}

type undoResp struct {
	Outcome string        `json:"outcome"`
	State   session.State `json:"state"`
}

type brushReq struct {
	Tool     *mask.Tool `json:"tool"`
	Diameter *int       `json:"diameter"`
}

// pointerMsg websocket 上的一条指针事件
type pointerMsg struct {
	Type     string           `json:"type"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Viewport pointer.Viewport `json:"viewport"`
}

type pointerAck struct {
	Drew    bool            `json:"drew"`
	Drawing bool            `json:"drawing"`
	Cursor  *pointer.Cursor `json:"cursor,omitempty"`
	State   *session.State  `json:"state,omitempty"`
	Error   string          `json:"error,omitempty"`
}
