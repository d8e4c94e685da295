package view

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

var (
	checkerLight = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	checkerDark  = color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
)

// drawCheckerboard 用两种颜色填充棋盘格，size 为格子边长
func drawCheckerboard(dst *image.NRGBA, rect image.Rectangle, size int, light, dark color.NRGBA) {
	if size <= 0 {
		size = 10
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.SetNRGBA(x, y, light)
			} else {
				dst.SetNRGBA(x, y, dark)
			}
		}
	}
}

// Render 生成展示用图片，棋盘格帧会把蒙版叠加在棋盘格上；占位帧返回 nil
func Render(f Frame, checkerSize int) image.Image {
	if f.Kind == FramePlaceholder || f.Image == nil {
		return nil
	}
	if !f.Checkerboard {
		return f.Image
	}
	b := f.Image.Bounds()
	dst := image.NewNRGBA(b)
	drawCheckerboard(dst, b, checkerSize, checkerLight, checkerDark)
	draw.Draw(dst, b, f.Image, b.Min, draw.Over)
	return dst
}
