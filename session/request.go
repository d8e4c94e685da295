package session

import (
	"context"

	"github.com/segmentio/ksuid"
)

// Request 一次抠图请求，结束后 Done 关闭
type Request struct {
	ID string

	done    chan struct{}
	err     error
	applied bool
}

func newRequest() *Request {
	return &Request{
		ID:   ksuid.New().String(),
		done: make(chan struct{}),
	}
}

func (r *Request) Done() <-chan struct{} { return r.done }

// Err 请求结束前为 nil
func (r *Request) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Applied 结果是否写入了位图
func (r *Request) Applied() bool {
	select {
	case <-r.done:
		return r.applied
	default:
		return false
	}
}

// Wait 等待请求结束；ctx 取消只停止等待，不取消请求
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Request) finish(applied bool, err error) {
	r.applied = applied
	r.err = err
	close(r.done)
}
