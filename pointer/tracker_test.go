package pointer

import (
	"image"
	"testing"

	"github.com/chaos-io/maskbrush/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type segment struct {
	tool     mask.Tool
	diameter int
	from, to mask.Point
}

type recordingPainter struct {
	segments []segment
}

func (p *recordingPainter) ApplySegment(tool mask.Tool, diameter int, from, to mask.Point) error {
	p.segments = append(p.segments, segment{tool: tool, diameter: diameter, from: from, to: to})
	return nil
}

type fakeSurface struct {
	working *image.NRGBA
}

func (s *fakeSurface) WorkingMask() *image.NRGBA { return s.working }

// 位图 100 宽，显示为 200 宽，偏移 (10, 20)
var viewport = Viewport{Left: 10, Top: 20, Width: 200, Height: 200}

func newTracker(tool mask.Tool) (*Tracker, *recordingPainter, *fakeSurface) {
	painter := &recordingPainter{}
	surface := &fakeSurface{working: image.NewNRGBA(image.Rect(0, 0, 100, 100))}
	return NewTracker(painter, surface, Brush{Tool: tool, Diameter: 10}), painter, surface
}

func ev(typ EventType, x, y float64) Event {
	return Event{Type: typ, X: x, Y: y, Viewport: viewport}
}

func TestTracker_Gesture(t *testing.T) {
	t.Parallel()

	tr, painter, _ := newTracker(mask.ToolErase)

	var started, ended int
	tr.OnGestureStart = func() { started++ }
	tr.OnGestureEnd = func() { ended++ }

	drew, err := tr.Handle(ev(EventDown, 30, 40))
	require.NoError(t, err)
	assert.True(t, drew)
	assert.Equal(t, StateDrawing, tr.State())

	_, err = tr.Handle(ev(EventMove, 50, 40))
	require.NoError(t, err)
	_, err = tr.Handle(ev(EventMove, 70, 60))
	require.NoError(t, err)
	_, err = tr.Handle(ev(EventUp, 70, 60))
	require.NoError(t, err)

	assert.Equal(t, StateIdle, tr.State())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)

	want := []segment{
		{tool: mask.ToolErase, diameter: 10, from: mask.Point{X: 10, Y: 10}, to: mask.Point{X: 10, Y: 10}},
		{tool: mask.ToolErase, diameter: 10, from: mask.Point{X: 10, Y: 10}, to: mask.Point{X: 20, Y: 10}},
		{tool: mask.ToolErase, diameter: 10, from: mask.Point{X: 20, Y: 10}, to: mask.Point{X: 30, Y: 20}},
	}
	assert.Equal(t, want, painter.segments)
}

func TestTracker_NoToolNoDrawing(t *testing.T) {
	t.Parallel()

	tr, painter, _ := newTracker(mask.ToolNone)
	drew, err := tr.Handle(ev(EventDown, 30, 40))
	require.NoError(t, err)
	assert.False(t, drew)
	assert.Equal(t, StateIdle, tr.State())
	assert.Nil(t, tr.Cursor())
	assert.Empty(t, painter.segments)
}

func TestTracker_NoWorkingMask(t *testing.T) {
	t.Parallel()

	tr, painter, surface := newTracker(mask.ToolRestore)
	surface.working = nil

	_, err := tr.Handle(ev(EventDown, 30, 40))
	require.NoError(t, err)
	_, err = tr.Handle(ev(EventMove, 60, 40))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, tr.State())
	assert.Empty(t, painter.segments)
}

func TestTracker_StrayMoveAfterRelease(t *testing.T) {
	t.Parallel()

	for _, release := range []EventType{EventUp, EventLeave, EventCancel} {
		tr, painter, _ := newTracker(mask.ToolErase)
		_, err := tr.Handle(ev(EventDown, 30, 40))
		require.NoError(t, err)
		_, err = tr.Handle(ev(release, 30, 40))
		require.NoError(t, err)

		drew, err := tr.Handle(ev(EventMove, 90, 90))
		require.NoError(t, err)
		assert.False(t, drew)
		assert.Len(t, painter.segments, 1, "只有落笔的圆点")
	}
}

func TestTracker_NewGestureDoesNotConnectToStalePoint(t *testing.T) {
	t.Parallel()

	tr, painter, _ := newTracker(mask.ToolErase)
	_, _ = tr.Handle(ev(EventDown, 30, 40))
	_, _ = tr.Handle(ev(EventUp, 30, 40))
	_, _ = tr.Handle(ev(EventDown, 130, 140))

	require.Len(t, painter.segments, 2)
	second := painter.segments[1]
	assert.Equal(t, second.from, second.to)
	assert.Equal(t, mask.Point{X: 60, Y: 60}, second.from)
}

func TestTracker_ScaleRecomputedPerGesture(t *testing.T) {
	t.Parallel()

	tr, painter, _ := newTracker(mask.ToolErase)
	_, _ = tr.Handle(ev(EventDown, 110, 120))
	_, _ = tr.Handle(ev(EventUp, 110, 120))

	// 窗口缩放后容器变成 100 宽
	resized := Viewport{Left: 0, Top: 0, Width: 100, Height: 100}
	_, _ = tr.Handle(Event{Type: EventDown, X: 50, Y: 50, Viewport: resized})
	// 同一手势内容器尺寸变化不影响换算
	_, _ = tr.Handle(Event{Type: EventMove, X: 60, Y: 50, Viewport: viewport})

	require.Len(t, painter.segments, 3)
	assert.Equal(t, mask.Point{X: 50, Y: 50}, painter.segments[0].from)
	assert.Equal(t, mask.Point{X: 50, Y: 50}, painter.segments[1].from)
	assert.Equal(t, mask.Point{X: 60, Y: 50}, painter.segments[2].to)
}

func TestTracker_Cursor(t *testing.T) {
	t.Parallel()

	tr, painter, _ := newTracker(mask.ToolRestore)
	_, err := tr.Handle(ev(EventMove, 42, 43))
	require.NoError(t, err)

	c := tr.Cursor()
	require.NotNil(t, c)
	assert.Equal(t, Cursor{X: 42, Y: 43, Radius: 10}, *c)
	assert.Empty(t, painter.segments, "预览不绘制")

	_, _ = tr.Handle(ev(EventLeave, 0, 0))
	assert.Nil(t, tr.Cursor())

	_, _ = tr.Handle(ev(EventMove, 42, 43))
	tr.SetTool(mask.ToolNone)
	assert.Nil(t, tr.Cursor())
}

func TestTracker_SetToolNoneEndsGesture(t *testing.T) {
	t.Parallel()

	tr, painter, _ := newTracker(mask.ToolErase)
	ended := 0
	tr.OnGestureEnd = func() { ended++ }

	_, _ = tr.Handle(ev(EventDown, 30, 40))
	tr.SetTool(mask.ToolNone)
	assert.Equal(t, StateIdle, tr.State())
	assert.Equal(t, 1, ended)

	_, _ = tr.Handle(ev(EventMove, 50, 50))
	assert.Len(t, painter.segments, 1)
}

func TestTracker_SetDiameterClamps(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTracker(mask.ToolErase)
	tr.SetDiameter(1)
	assert.Equal(t, mask.MinDiameter, tr.Brush().Diameter)
	tr.SetDiameter(999)
	assert.Equal(t, mask.MaxDiameter, tr.Brush().Diameter)
}

func TestParseEventType(t *testing.T) {
	t.Parallel()

	got, err := ParseEventType("cancel")
	require.NoError(t, err)
	assert.Equal(t, EventCancel, got)

	_, err = ParseEventType("wheel")
	assert.Error(t, err)
}
