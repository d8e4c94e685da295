// Package raster 持有原图、抠图结果和可编辑蒙版三张位图
package raster

import (
	"errors"
	"fmt"
	"image"

	"github.com/chaos-io/maskbrush/util"
	"go.uber.org/zap"
)

var (
	// ErrDecode 上传的字节不是有效图片
	ErrDecode = errors.New("invalid image data")
	// ErrDimensionMismatch 服务返回的结果无法使用
	ErrDimensionMismatch = errors.New("processed result unusable")
	// ErrNoSource 尚未上传原图
	ErrNoSource = errors.New("no source image")
)

// aspectTolerance 服务结果与原图宽高比允许的相对误差
const aspectTolerance = 0.01

// Store 位图存储
//
// Source 解码后不可变；Working 只允许通过 mask.Compositor 或 Restore 修改。
// 每次修改都会递增 Revision，基于旧缓冲区生成的展示句柄随之失效。
type Store struct {
	maxDimension int

	source    *image.NRGBA
	processed *image.NRGBA
	working   *image.NRGBA
	revision  uint64
}

// NewStore maxDimension 为上传图片最长边上限，<= 0 表示不缩放
func NewStore(maxDimension int) *Store {
	return &Store{maxDimension: maxDimension}
}

// SetSource 解码并设置原图，同时丢弃旧的抠图结果和蒙版
func (s *Store) SetSource(data []byte) (*image.NRGBA, error) {
	img, format, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	before := img.Bounds()
	img = resizeWithinMax(img, s.maxDimension)
	if img.Bounds() != before {
		util.Logger.Debug("source downscaled",
			zap.String("format", format),
			zap.Int("from_width", before.Dx()),
			zap.Int("from_height", before.Dy()),
			zap.Int("to_width", img.Bounds().Dx()),
			zap.Int("to_height", img.Bounds().Dy()))
	}

	s.source = img
	s.processed = nil
	s.working = nil
	s.revision++
	return s.source, nil
}

// SetProcessed 设置抠图结果，并把蒙版重置为它的副本
//
// 尺寸不同但宽高比一致时缩放到原图尺寸。
func (s *Store) SetProcessed(data []byte) (*image.NRGBA, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}

	img, _, err := decode(data)
	if err != nil {
		util.Logger.Warn("service returned undecodable image", zap.Int("bytes", len(data)), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
	}

	want := s.source.Bounds()
	if img.Bounds().Size() != want.Size() {
		if !sameAspect(img.Bounds(), want, aspectTolerance) {
			return nil, fmt.Errorf("%w: got %dx%d, source is %dx%d",
				ErrDimensionMismatch, img.Bounds().Dx(), img.Bounds().Dy(), want.Dx(), want.Dy())
		}
		img = scaleTo(img, want)
	}

	if !hasUsefulAlpha(img) {
		util.Logger.Warn("service returned fully opaque result")
	}

	s.processed = img
	s.working = cloneNRGBA(img)
	s.revision++
	return s.processed, nil
}

// ClearProcessed 回到只有原图的状态
func (s *Store) ClearProcessed() {
	if s.processed == nil && s.working == nil {
		return
	}
	s.processed = nil
	s.working = nil
	s.revision++
}

func (s *Store) Source() *image.NRGBA { return s.source }

func (s *Store) Processed() *image.NRGBA { return s.processed }

func (s *Store) HasSource() bool { return s.source != nil }

func (s *Store) HasProcessed() bool { return s.processed != nil }

// WorkingMask 返回可写的蒙版缓冲区，未加载抠图结果时为 nil
func (s *Store) WorkingMask() *image.NRGBA { return s.working }

// MarkDirty 蒙版像素被修改后调用
func (s *Store) MarkDirty() { s.revision++ }

func (s *Store) Revision() uint64 { return s.revision }

// ExportWorkingMask 把蒙版编码为 PNG
func (s *Store) ExportWorkingMask() ([]byte, error) {
	if s.working == nil {
		return nil, ErrNoSource
	}
	return EncodePNG(s.working)
}

// ExportTrimmed 按可见区域裁剪后编码为 PNG
func (s *Store) ExportTrimmed() ([]byte, error) {
	if s.working == nil {
		return nil, ErrNoSource
	}
	bbox, err := alphaBBox(s.working, 0)
	if err != nil {
		return nil, err
	}
	return EncodePNG(crop(s.working, bbox))
}

// Snapshot 抠图结果和蒙版的副本
type Snapshot struct {
	processed *image.NRGBA
	working   *image.NRGBA
}

// Empty 快照时还没有抠图结果
func (sn Snapshot) Empty() bool { return sn.processed == nil }

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		processed: s.processed,
		working:   cloneNRGBA(s.working),
	}
}

// Restore 恢复快照；processed 本身不会被就地修改，可以共享
func (s *Store) Restore(sn Snapshot) {
	s.processed = sn.processed
	s.working = cloneNRGBA(sn.working)
	s.revision++
}
