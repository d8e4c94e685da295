package pointer

import "github.com/chaos-io/maskbrush/mask"

// Viewport 图片容器在屏幕上的实时外接矩形
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Scale 显示宽度 / 位图宽度
func (v Viewport) Scale(bitmapWidth int) float64 {
	if bitmapWidth <= 0 || v.Width <= 0 {
		return 0
	}
	return v.Width / float64(bitmapWidth)
}

// ToBitmap 把屏幕坐标换算到位图像素坐标
func (v Viewport) ToBitmap(x, y, scale float64) mask.Point {
	return mask.Point{X: (x - v.Left) / scale, Y: (y - v.Top) / scale}
}
