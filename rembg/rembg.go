// Package rembg 外部抠图/分割服务客户端
package rembg

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrHistoryEmpty 服务端没有可撤销的步骤
	ErrHistoryEmpty = errors.New("no more undo steps")
	// ErrNoResult 响应里没有 result_image
	ErrNoResult = errors.New("response has no result image")
)

//go:generate mockgen -destination=mocks/rembg.go -package=mocks . Remover,Segmenter

// Remover 背景去除，返回带透明通道的图片字节
type Remover interface {
	Remove(ctx context.Context, name string, data []byte) ([]byte, error)
}

// Mode 点选模式
type Mode string

const (
	ModeSelect   Mode = "select"
	ModeUnselect Mode = "unselect"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSelect:
		return ModeSelect, nil
	case ModeUnselect:
		return ModeUnselect, nil
	}
	return "", fmt.Errorf("unknown prompt mode %q", s)
}

// Segmenter 点选分割服务，服务端为每张上传的图片维护自己的撤销栈
type Segmenter interface {
	UploadImage(ctx context.Context, name string, data []byte) error
	Click(ctx context.Context, x, y int, mode Mode) ([]byte, error)
	Undo(ctx context.Context) ([]byte, error)
	Regenerate(ctx context.Context) ([]byte, error)
	Download(ctx context.Context) ([]byte, error)
}
