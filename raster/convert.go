package raster

import (
	"errors"
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ErrEmptyMask 没有任何可见像素
var ErrEmptyMask = errors.New("mask has no visible pixels")

// toNRGBA 转为原点在 (0,0) 的 NRGBA，总是返回新的缓冲区
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		// 逐行复制，避免预乘往返丢失半透明像素的颜色
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[i:i+b.Dx()*4])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	if img == nil {
		return nil
	}
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(dst.Pix, img.Pix)
	return dst
}

// hasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
func hasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// resizeWithinMax 缩放（最长边 <= maxSize），maxSize <= 0 时不处理
func resizeWithinMax(img *image.NRGBA, maxSize int) *image.NRGBA {
	if maxSize <= 0 {
		return img
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(math.Round(float64(w)*scale)))
	newH := max(1, int(math.Round(float64(h)*scale)))

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	return toNRGBA(resized)
}

// sameAspect 宽高比误差在 tolerance 以内
func sameAspect(a, b image.Rectangle, tolerance float64) bool {
	if a.Dx() == 0 || a.Dy() == 0 || b.Dx() == 0 || b.Dy() == 0 {
		return false
	}
	ra := float64(a.Dx()) / float64(a.Dy())
	rb := float64(b.Dx()) / float64(b.Dy())
	return math.Abs(ra-rb)/ra <= tolerance
}

// scaleTo 缩放到指定尺寸
func scaleTo(img *image.NRGBA, size image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size.Dx(), size.Dy()))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// alphaBBox 从 alpha 通道计算主体 bounding box
// 把 alpha > threshold 的像素当作主体
func alphaBBox(img *image.NRGBA, threshold uint8) (image.Rectangle, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := false

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			if img.Pix[row+x*4+3] > threshold {
				found = true
				minX = min(minX, x)
				minY = min(minY, y)
				maxX = max(maxX, x)
				maxY = max(maxY, y)
			}
		}
	}

	if !found {
		return image.Rectangle{}, ErrEmptyMask
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

func crop(img *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}
