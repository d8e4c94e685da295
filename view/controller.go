// Package view 决定当前展示哪张位图以及是否显示透明棋盘格
package view

import "image"

type ActiveView int

const (
	ViewWorking ActiveView = iota
	// ViewSourcePreview 按住期间临时查看原图
	ViewSourcePreview
)

func (v ActiveView) String() string {
	if v == ViewSourcePreview {
		return "source_preview"
	}
	return "working"
}

type FrameKind int

const (
	FramePlaceholder FrameKind = iota
	FrameSource
	FrameWorking
)

func (k FrameKind) String() string {
	switch k {
	case FrameSource:
		return "source"
	case FrameWorking:
		return "working"
	}
	return "placeholder"
}

// Raster 由 raster.Store 实现
type Raster interface {
	Source() *image.NRGBA
	WorkingMask() *image.NRGBA
	HasProcessed() bool
	Revision() uint64
}

// Frame 一次解析出的展示内容，图片与棋盘格标记总是一起给出
type Frame struct {
	Kind         FrameKind
	View         ActiveView
	Image        *image.NRGBA
	Checkerboard bool
	Revision     uint64
}

type Controller struct {
	active ActiveView
}

func NewController() *Controller {
	return &Controller{active: ViewWorking}
}

func (c *Controller) Active() ActiveView { return c.active }

// BeginSourcePreview 按下（包括触摸）时进入原图预览
func (c *Controller) BeginSourcePreview() { c.active = ViewSourcePreview }

// EndSourcePreview 松开或按住时离开区域都视为结束
func (c *Controller) EndSourcePreview() { c.active = ViewWorking }

// Reset 新上传后回到初始状态
func (c *Controller) Reset() { c.active = ViewWorking }

// CheckerboardVisible 有抠图结果且不在原图预览时显示棋盘格
func (c *Controller) CheckerboardVisible(hasProcessed bool) bool {
	return hasProcessed && c.active == ViewWorking
}

// Resolve 按优先级选择展示内容：原图预览 > 蒙版 > 原图 > 占位
func (c *Controller) Resolve(r Raster) Frame {
	f := Frame{View: c.active, Revision: r.Revision()}

	source := r.Source()
	working := r.WorkingMask()

	switch {
	case c.active == ViewSourcePreview && source != nil:
		f.Kind, f.Image = FrameSource, source
	case c.active == ViewSourcePreview:
		f.Kind = FramePlaceholder
	case working != nil:
		f.Kind, f.Image = FrameWorking, working
	case source != nil:
		f.Kind, f.Image = FrameSource, source
	default:
		f.Kind = FramePlaceholder
	}
	f.Checkerboard = c.CheckerboardVisible(r.HasProcessed())
	return f
}
