package session

import (
	"github.com/chaos-io/maskbrush/pointer"
	"github.com/chaos-io/maskbrush/view"
)

// State 一次性读出的会话状态，展示句柄与棋盘格标记来自同一帧
type State struct {
	ID           string          `json:"id"`
	HasImage     bool            `json:"has_image"`
	HasProcessed bool            `json:"has_processed"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	View         string          `json:"view"`
	Frame        string          `json:"frame"`
	Handle       string          `json:"handle,omitempty"`
	Checkerboard bool            `json:"checkerboard"`
	Loading      bool            `json:"loading"`
	Drawing      bool            `json:"drawing"`
	Brush        pointer.Brush   `json:"brush"`
	Cursor       *pointer.Cursor `json:"cursor,omitempty"`
	UndoDepth    int             `json:"undo_depth"`
	Revision     uint64          `json:"revision"`
}

// Frame 当前应展示的内容，Image 指向内部缓冲区，只能在下一次修改前读取
func (s *Session) Frame() view.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Resolve(s.store)
}

// State 解析当前帧并为它分配展示句柄
func (s *Session) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.view.Resolve(s.store)
	handle, err := s.handles.Acquire(f)
	if err != nil {
		return State{}, err
	}

	st := State{
		ID:           s.id,
		HasImage:     s.store.HasSource(),
		HasProcessed: s.store.HasProcessed(),
		View:         f.View.String(),
		Frame:        f.Kind.String(),
		Handle:       handle,
		Checkerboard: f.Checkerboard,
		Loading:      s.current != nil,
		Drawing:      s.tracker.State() == pointer.StateDrawing,
		Brush:        s.tracker.Brush(),
		Cursor:       s.tracker.Cursor(),
		UndoDepth:    s.history.Len(),
		Revision:     f.Revision,
	}
	if src := s.store.Source(); src != nil {
		st.Width, st.Height = src.Bounds().Dx(), src.Bounds().Dy()
	}
	return st, nil
}

// Gesture 当前是否在绘制以及笔刷预览，不生成展示句柄
func (s *Session) Gesture() (bool, *pointer.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.State() == pointer.StateDrawing, s.tracker.Cursor()
}
