// Package session 一个用户的编辑会话：上传、抠图、笔刷修补、撤销和导出
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/chaos-io/maskbrush/mask"
	"github.com/chaos-io/maskbrush/pointer"
	"github.com/chaos-io/maskbrush/raster"
	"github.com/chaos-io/maskbrush/rembg"
	"github.com/chaos-io/maskbrush/util"
	"github.com/chaos-io/maskbrush/view"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 20

type Options struct {
	Remover rembg.Remover
	// Segmenter 为 nil 时不支持点选
	Segmenter       rembg.Segmenter
	MaxDimension    int
	CheckerSize     int
	DefaultDiameter int
	HistoryLimit    int
}

type UndoOutcome int

const (
	// UndoRestored 恢复到上一个检查点
	UndoRestored UndoOutcome = iota
	// UndoResetToSource 没有检查点，回到原图展示
	UndoResetToSource
)

func (o UndoOutcome) String() string {
	if o == UndoResetToSource {
		return "reset_to_source"
	}
	return "restored"
}

// Session 所有状态修改都在 mu 内串行执行，网络请求在锁外进行
type Session struct {
	id string

	mu         sync.Mutex
	store      *raster.Store
	compositor *mask.Compositor
	tracker    *pointer.Tracker
	view       *view.Controller
	handles    *view.Handles
	history    *History

	remover   rembg.Remover
	segmenter rembg.Segmenter

	sourceName string
	sourcePNG  []byte
	// generation 每次上传递增，用于丢弃旧图片的迟到结果
	generation   uint64
	current      *Request
	prompting    *Request
	remoteSynced bool

	lastActive time.Time
	now        func() time.Time
}

func New(id string, opts Options) *Session {
	store := raster.NewStore(opts.MaxDimension)
	compositor := mask.NewCompositor(store)
	diameter := opts.DefaultDiameter
	if diameter == 0 {
		diameter = 20
	}
	limit := opts.HistoryLimit
	if limit == 0 {
		limit = defaultHistoryLimit
	}

	s := &Session{
		id:         id,
		store:      store,
		compositor: compositor,
		tracker:    pointer.NewTracker(compositor, store, pointer.Brush{Diameter: diameter}),
		view:       view.NewController(),
		handles:    view.NewHandles(opts.CheckerSize),
		history:    NewHistory(limit),
		remover:    opts.Remover,
		segmenter:  opts.Segmenter,
		now:        time.Now,
	}
	s.tracker.OnGestureStart = s.checkpoint
	s.lastActive = s.now()
	return s
}

func (s *Session) ID() string { return s.id }

// LastActive 最近一次操作时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() { s.lastActive = s.now() }

// checkpoint 在锁内调用
func (s *Session) checkpoint() {
	s.history.Push(Checkpoint{Origin: OriginLocal, Snapshot: s.store.Snapshot()})
}

// Upload 替换原图；解码失败时保留之前的全部状态
func (s *Session) Upload(name string, data []byte) (image.Rectangle, error) {
	if len(data) == 0 {
		return image.Rectangle{}, ErrEmptyUpload
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	src, err := s.store.SetSource(data)
	if err != nil {
		return image.Rectangle{}, err
	}
	encoded, err := raster.EncodePNG(src)
	if err != nil {
		return image.Rectangle{}, err
	}

	s.sourceName = name
	s.sourcePNG = encoded
	s.generation++
	if s.current != nil {
		util.Logger.Info("dropping in-flight removal for replaced image",
			zap.String("session", s.id), zap.String("request", s.current.ID))
		s.current = nil
	}
	s.prompting = nil
	s.remoteSynced = false
	s.history.Clear()
	s.view.Reset()
	s.tracker.Reset()
	s.handles.ReleaseAll()

	util.Logger.Info("image uploaded",
		zap.String("session", s.id),
		zap.String("name", name),
		zap.Int("width", src.Bounds().Dx()),
		zap.Int("height", src.Bounds().Dy()))
	return src.Bounds(), nil
}

// RunBackgroundRemoval 发起一次抠图；已有请求在途时返回 nil, nil
//
// 请求在后台执行，ctx 的取消不会中断它，只有请求结束时仍是当前请求才会写入结果。
func (s *Session) RunBackgroundRemoval(ctx context.Context) (*Request, error) {
	s.mu.Lock()
	s.touch()
	if !s.store.HasSource() {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	if s.current != nil {
		id := s.current.ID
		s.mu.Unlock()
		util.Logger.Debug("removal already in flight", zap.String("session", s.id), zap.String("request", id))
		return nil, nil
	}

	req := newRequest()
	s.current = req
	name, data := s.sourceName, s.sourcePNG
	s.mu.Unlock()

	util.Logger.Info("removal started", zap.String("session", s.id), zap.String("request", req.ID))
	go s.runRemoval(context.WithoutCancel(ctx), req, name, data)
	return req, nil
}

func (s *Session) runRemoval(ctx context.Context, req *Request, name string, data []byte) {
	start := time.Now()
	out, err := s.remover.Remove(ctx, name, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != req {
		util.Logger.Info("discarding stale removal result",
			zap.String("session", s.id), zap.String("request", req.ID))
		req.finish(false, ErrSuperseded)
		return
	}
	s.current = nil

	if err != nil {
		util.Logger.Error("removal failed",
			zap.String("session", s.id), zap.String("request", req.ID),
			zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		req.finish(false, fmt.Errorf("%w: %v", ErrRemovalFailed, err))
		return
	}
	if _, err := s.store.SetProcessed(out); err != nil {
		util.Logger.Error("removal result rejected",
			zap.String("session", s.id), zap.String("request", req.ID), zap.Error(err))
		req.finish(false, err)
		return
	}

	// 新的抠图结果取代之前的修补，进行中的手势作废
	s.history.Clear()
	s.view.Reset()
	s.tracker.Reset()
	// 服务端撤销栈里的点选已不在本地历史中，下次点选重新上传
	s.remoteSynced = false
	util.Logger.Info("removal applied",
		zap.String("session", s.id), zap.String("request", req.ID),
		zap.Duration("elapsed", time.Since(start)))
	req.finish(true, nil)
}

// Loading 是否有抠图请求在途
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Click 点选分割，x、y 为位图坐标
func (s *Session) Click(ctx context.Context, x, y int, mode rembg.Mode) error {
	return s.prompt(ctx, "click", func(ctx context.Context) ([]byte, error) {
		return s.segmenter.Click(ctx, x, y, mode)
	}, OriginPrompt)
}

// Regenerate 按当前选区重新生成，只产生本地检查点
func (s *Session) Regenerate(ctx context.Context) error {
	return s.prompt(ctx, "regenerate", func(ctx context.Context) ([]byte, error) {
		return s.segmenter.Regenerate(ctx)
	}, OriginLocal)
}

func (s *Session) prompt(ctx context.Context, op string, call func(context.Context) ([]byte, error), origin Origin) error {
	s.mu.Lock()
	s.touch()
	if !s.store.HasSource() {
		s.mu.Unlock()
		return ErrNoImage
	}
	if s.segmenter == nil {
		s.mu.Unlock()
		return ErrPromptsDisabled
	}
	if s.prompting != nil {
		id := s.prompting.ID
		s.mu.Unlock()
		util.Logger.Debug("prompt already in flight", zap.String("session", s.id), zap.String("request", id))
		return ErrPromptInFlight
	}
	req := newRequest()
	s.prompting = req
	gen, synced := s.generation, s.remoteSynced
	name, data := s.sourceName, s.sourcePNG
	s.mu.Unlock()

	err := s.runPrompt(ctx, op, call, origin, gen, synced, name, data)

	s.mu.Lock()
	if s.prompting == req {
		s.prompting = nil
	}
	s.mu.Unlock()
	req.finish(err == nil, err)
	return err
}

func (s *Session) runPrompt(ctx context.Context, op string, call func(context.Context) ([]byte, error), origin Origin,
	gen uint64, synced bool, name string, data []byte) error {
	if !synced {
		if err := s.segmenter.UploadImage(ctx, name, data); err != nil {
			util.Logger.Error("prompt upload failed", zap.String("session", s.id), zap.Error(err))
			return fmt.Errorf("%w: %v", ErrRemovalFailed, err)
		}
		s.mu.Lock()
		if gen == s.generation {
			s.remoteSynced = true
		}
		s.mu.Unlock()
	}

	out, err := call(ctx)
	if err != nil {
		util.Logger.Error("prompt failed", zap.String("session", s.id), zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRemovalFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		util.Logger.Info("discarding stale prompt result", zap.String("session", s.id), zap.String("op", op))
		return ErrSuperseded
	}

	snap := s.store.Snapshot()
	if _, err := s.store.SetProcessed(out); err != nil {
		return err
	}
	s.history.Push(Checkpoint{Origin: origin, Snapshot: snap})
	s.view.Reset()
	s.tracker.Reset()
	return nil
}

// Undo 撤销最近一步；没有检查点时回到原图展示
func (s *Session) Undo(ctx context.Context) (UndoOutcome, error) {
	s.mu.Lock()
	s.touch()
	if !s.store.HasSource() {
		s.mu.Unlock()
		return UndoResetToSource, ErrNoImage
	}

	cp, err := s.history.Pop()
	if errors.Is(err, ErrEmptyHistory) {
		s.store.ClearProcessed()
		s.view.Reset()
		s.tracker.Reset()
		s.mu.Unlock()
		util.Logger.Info("undo history empty, showing source", zap.String("session", s.id))
		return UndoResetToSource, nil
	}

	s.store.Restore(cp.Snapshot)
	s.tracker.Reset()
	syncRemote := cp.Origin == OriginPrompt && s.segmenter != nil && s.remoteSynced
	gen := s.generation
	s.mu.Unlock()

	if syncRemote {
		// 本地历史为准，服务端撤销失败时下次点选重新上传
		if _, err := s.segmenter.Undo(ctx); err != nil && !errors.Is(err, rembg.ErrHistoryEmpty) {
			util.Logger.Warn("remote undo failed", zap.String("session", s.id), zap.Error(err))
			s.mu.Lock()
			if gen == s.generation {
				s.remoteSynced = false
			}
			s.mu.Unlock()
		}
	}
	return UndoRestored, nil
}

// SetTool 切换工具，none 会结束正在进行的手势
func (s *Session) SetTool(tool mask.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.tracker.SetTool(tool)
}

// SetDiameter 设置笔刷直径，超出范围时截断
func (s *Session) SetDiameter(d int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.tracker.SetDiameter(d)
}

func (s *Session) Brush() pointer.Brush {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Brush()
}

// Pointer 处理一次指针事件，返回是否修改了蒙版
func (s *Session) Pointer(ev pointer.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.tracker.Handle(ev)
}

// ApplyStroke 一次性绘制整条位图坐标下的笔画
func (s *Session) ApplyStroke(st mask.Stroke) error {
	if err := st.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if !s.store.HasSource() {
		return ErrNoImage
	}
	if s.store.WorkingMask() == nil {
		return ErrNoWorkingMask
	}
	s.checkpoint()
	return s.compositor.ApplyStroke(st)
}

// BeginPreview 按住时临时显示原图
func (s *Session) BeginPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.view.BeginSourcePreview()
}

func (s *Session) EndPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.view.EndSourcePreview()
}

// DownloadMask 导出当前蒙版，包含调用前的所有笔画
func (s *Session) DownloadMask(trim bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if !s.store.HasSource() {
		return nil, ErrNoImage
	}
	if s.store.WorkingMask() == nil {
		return nil, ErrNoWorkingMask
	}
	if trim {
		return s.store.ExportTrimmed()
	}
	return s.store.ExportWorkingMask()
}

// DownloadRemote 下载服务端保存的分割结果
func (s *Session) DownloadRemote(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	s.touch()
	if s.segmenter == nil {
		s.mu.Unlock()
		return nil, ErrPromptsDisabled
	}
	synced := s.remoteSynced
	s.mu.Unlock()
	if !synced {
		return nil, ErrNoWorkingMask
	}

	data, err := s.segmenter.Download(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemovalFailed, err)
	}
	return data, nil
}

// Display 按句柄取展示图片
func (s *Session) Display(handle string) ([]byte, bool) {
	return s.handles.Lookup(handle)
}

// Close 释放展示句柄并丢弃在途请求
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.prompting = nil
	s.tracker.Reset()
	s.handles.ReleaseAll()
}
