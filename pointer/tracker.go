// Package pointer 把指针/触摸事件转换为连续的笔刷线段
package pointer

import (
	"fmt"
	"image"

	"github.com/chaos-io/maskbrush/mask"
)

type State int

const (
	StateIdle State = iota
	StateDrawing
)

func (s State) String() string {
	if s == StateDrawing {
		return "drawing"
	}
	return "idle"
}

type EventType int

const (
	EventDown EventType = iota
	EventMove
	EventUp
	EventLeave
	// EventCancel 失去指针捕获
	EventCancel
)

var eventNames = map[string]EventType{
	"down":   EventDown,
	"move":   EventMove,
	"up":     EventUp,
	"leave":  EventLeave,
	"cancel": EventCancel,
}

func ParseEventType(s string) (EventType, error) {
	if t, ok := eventNames[s]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown pointer event %q", s)
}

// Event 屏幕坐标系下的一次指针事件
type Event struct {
	Type     EventType
	X, Y     float64
	Viewport Viewport
}

// Painter 由 mask.Compositor 实现
type Painter interface {
	ApplySegment(tool mask.Tool, diameter int, from, to mask.Point) error
}

// Surface 由 raster.Store 实现
type Surface interface {
	WorkingMask() *image.NRGBA
}

// Brush 当前工具设置，Tool 为 none 时不允许绘制
type Brush struct {
	Tool     mask.Tool `json:"tool"`
	Diameter int       `json:"diameter"`
}

// Cursor 笔刷大小预览，屏幕坐标
type Cursor struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

type Tracker struct {
	painter Painter
	surface Surface
	brush   Brush

	state    State
	viewport Viewport
	scale    float64
	last     *mask.Point
	cursor   *Cursor

	// OnGestureStart 在一次手势落笔之前调用
	OnGestureStart func()
	// OnGestureEnd 在手势结束后调用
	OnGestureEnd func()
}

func NewTracker(painter Painter, surface Surface, brush Brush) *Tracker {
	brush.Diameter = mask.ClampDiameter(brush.Diameter)
	return &Tracker{
		painter: painter,
		surface: surface,
		brush:   brush,
	}
}

func (t *Tracker) State() State { return t.state }

func (t *Tracker) Brush() Brush { return t.brush }

// SetTool 切到 none 时结束正在进行的手势并隐藏预览
func (t *Tracker) SetTool(tool mask.Tool) {
	t.brush.Tool = tool
	if tool == mask.ToolNone {
		t.cursor = nil
		t.end()
	}
}

func (t *Tracker) SetDiameter(d int) {
	t.brush.Diameter = mask.ClampDiameter(d)
}

// Cursor 当前笔刷预览，工具为 none 或指针不在画布上时返回 nil
func (t *Tracker) Cursor() *Cursor {
	if t.cursor == nil {
		return nil
	}
	c := *t.cursor
	return &c
}

// Handle 处理一次事件，返回是否绘制了线段
func (t *Tracker) Handle(ev Event) (bool, error) {
	t.trackCursor(ev)

	switch ev.Type {
	case EventDown:
		return t.begin(ev)
	case EventMove:
		return t.extend(ev)
	case EventUp, EventLeave, EventCancel:
		t.end()
	}
	return false, nil
}

// Reset 丢弃手势状态，不触发 OnGestureEnd
func (t *Tracker) Reset() {
	t.state = StateIdle
	t.last = nil
}

func (t *Tracker) begin(ev Event) (bool, error) {
	if t.state == StateDrawing || t.brush.Tool == mask.ToolNone {
		return false, nil
	}
	working := t.surface.WorkingMask()
	if working == nil {
		return false, nil
	}
	scale := ev.Viewport.Scale(working.Bounds().Dx())
	if scale <= 0 {
		return false, nil
	}

	// 每次手势按当时的容器尺寸重新计算缩放
	t.viewport = ev.Viewport
	t.scale = scale
	p := t.viewport.ToBitmap(ev.X, ev.Y, t.scale)

	if t.OnGestureStart != nil {
		t.OnGestureStart()
	}
	t.state = StateDrawing
	t.last = &p
	return true, t.painter.ApplySegment(t.brush.Tool, t.brush.Diameter, p, p)
}

func (t *Tracker) extend(ev Event) (bool, error) {
	if t.state != StateDrawing || t.last == nil {
		return false, nil
	}
	p := t.viewport.ToBitmap(ev.X, ev.Y, t.scale)
	from := *t.last
	t.last = &p
	return true, t.painter.ApplySegment(t.brush.Tool, t.brush.Diameter, from, p)
}

func (t *Tracker) end() {
	if t.state != StateDrawing {
		return
	}
	t.state = StateIdle
	t.last = nil
	if t.OnGestureEnd != nil {
		t.OnGestureEnd()
	}
}

func (t *Tracker) trackCursor(ev Event) {
	if t.brush.Tool == mask.ToolNone || ev.Type == EventLeave {
		t.cursor = nil
		return
	}
	radius := float64(t.brush.Diameter) / 2
	if working := t.surface.WorkingMask(); working != nil {
		if scale := ev.Viewport.Scale(working.Bounds().Dx()); scale > 0 {
			radius *= scale
		}
	}
	t.cursor = &Cursor{X: ev.X, Y: ev.Y, Radius: radius}
}
