// Package mask 把擦除/恢复笔刷画到可编辑蒙版上
package mask

import (
	"image"
	"math"
)

// Canvas 笔刷读写的位图，由 raster.Store 实现
type Canvas interface {
	Source() *image.NRGBA
	WorkingMask() *image.NRGBA
	MarkDirty()
}

type Compositor struct {
	canvas Canvas
}

func NewCompositor(canvas Canvas) *Compositor {
	return &Compositor{canvas: canvas}
}

// ApplyStroke 按轨迹绘制整条笔画，蒙版不存在时什么都不做
func (c *Compositor) ApplyStroke(s Stroke) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if c.canvas.WorkingMask() == nil {
		return nil
	}

	if len(s.Points) == 1 {
		c.paint(s.Tool, s.Diameter, s.Points[0], s.Points[0])
	}
	for i := 1; i < len(s.Points); i++ {
		c.paint(s.Tool, s.Diameter, s.Points[i-1], s.Points[i])
	}
	c.canvas.MarkDirty()
	return nil
}

// ApplySegment 绘制一段从 from 到 to 的圆头线段，from == to 时是一个圆
func (c *Compositor) ApplySegment(tool Tool, diameter int, from, to Point) error {
	return c.ApplyStroke(Stroke{Tool: tool, Diameter: diameter, Points: []Point{from, to}})
}

func (c *Compositor) paint(tool Tool, diameter int, a, b Point) {
	dst := c.canvas.WorkingMask()
	src := c.canvas.Source()
	if tool == ToolRestore && src == nil {
		return
	}

	r := float64(diameter) / 2
	area := Footprint(a, b, diameter).Intersect(dst.Bounds())
	if tool == ToolRestore {
		area = area.Intersect(src.Bounds())
	}

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if !Covers(a, b, r, x, y) {
				continue
			}
			i := dst.PixOffset(x, y)
			switch tool {
			case ToolErase:
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 0, 0, 0, 0
			case ToolRestore:
				j := src.PixOffset(x, y)
				copy(dst.Pix[i:i+4], src.Pix[j:j+4])
			}
		}
	}
}

// Footprint 线段笔刷覆盖区域的外接矩形
func Footprint(a, b Point, diameter int) image.Rectangle {
	r := float64(diameter) / 2
	return image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-r)),
		int(math.Floor(math.Min(a.Y, b.Y)-r)),
		int(math.Ceil(math.Max(a.X, b.X)+r))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+r))+1,
	)
}

// Covers 像素 (x, y) 的中心到线段 ab 的距离不超过 r
func Covers(a, b Point, r float64, x, y int) bool {
	return distToSegment(Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}, a, b) <= r
}

func distToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
