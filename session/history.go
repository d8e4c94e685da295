package session

import "github.com/chaos-io/maskbrush/raster"

type Origin int

const (
	// OriginLocal 笔刷或重新生成产生的检查点，只在本地撤销
	OriginLocal Origin = iota
	// OriginPrompt 点选产生的检查点，撤销时同步服务端
	OriginPrompt
)

func (o Origin) String() string {
	if o == OriginPrompt {
		return "prompt"
	}
	return "local"
}

type Checkpoint struct {
	Origin   Origin
	Snapshot raster.Snapshot
}

// History 撤销栈，超过 limit 时丢弃最早的检查点
type History struct {
	items []Checkpoint
	limit int
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

func (h *History) Push(cp Checkpoint) {
	h.items = append(h.items, cp)
	if h.limit > 0 && len(h.items) > h.limit {
		h.items = append(h.items[:0], h.items[len(h.items)-h.limit:]...)
	}
}

func (h *History) Pop() (Checkpoint, error) {
	if len(h.items) == 0 {
		return Checkpoint{}, ErrEmptyHistory
	}
	cp := h.items[len(h.items)-1]
	h.items[len(h.items)-1] = Checkpoint{}
	h.items = h.items[:len(h.items)-1]
	return cp, nil
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Clear() {
	clear(h.items)
	h.items = h.items[:0]
}
