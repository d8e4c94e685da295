package view

import (
	"bytes"
	"image/png"
	"sync"

	"github.com/segmentio/ksuid"
)

type handleEntry struct {
	id       string
	revision uint64
	kind     FrameKind
	view     ActiveView
	data     []byte
}

// Handles 展示句柄，同一时刻只保留最新的一个，旧句柄在被替换时释放
type Handles struct {
	mu          sync.RWMutex
	checkerSize int
	current     *handleEntry
	released    int
}

func NewHandles(checkerSize int) *Handles {
	return &Handles{checkerSize: checkerSize}
}

// Acquire 返回 frame 对应的句柄 ID，内容未变化时复用当前句柄；占位帧返回空字符串
func (h *Handles) Acquire(f Frame) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f.Kind == FramePlaceholder {
		h.releaseLocked()
		return "", nil
	}
	if c := h.current; c != nil && c.revision == f.Revision && c.kind == f.Kind && c.view == f.View {
		return c.id, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(f, h.checkerSize)); err != nil {
		return "", err
	}

	h.releaseLocked()
	h.current = &handleEntry{
		id:       ksuid.New().String(),
		revision: f.Revision,
		kind:     f.Kind,
		view:     f.View,
		data:     buf.Bytes(),
	}
	return h.current.id, nil
}

// Lookup 只能查到当前有效的句柄
func (h *Handles) Lookup(id string) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil || h.current.id != id {
		return nil, false
	}
	return h.current.data, true
}

// ReleaseAll 释放全部句柄
func (h *Handles) ReleaseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked()
}

// Released 累计释放的句柄数
func (h *Handles) Released() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

func (h *Handles) releaseLocked() {
	if h.current != nil {
		h.current = nil
		h.released++
	}
}
