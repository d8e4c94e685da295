package http

import (
	"context"
	"fmt"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 描述一次请求
//
// Body 支持 nil、io.Reader、[]byte，其他类型按 JSON 序列化。
// Response 为 *[]byte 时写入原始响应体，否则按 JSON 反序列化。
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	Timeout time.Duration

	// StatusCode 请求完成后回填
	StatusCode int
}

// StatusError 非 2xx 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.Code, e.Body)
}
