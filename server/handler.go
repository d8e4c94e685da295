package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/chaos-io/maskbrush/config"
	"github.com/chaos-io/maskbrush/mask"
	"github.com/chaos-io/maskbrush/rembg"
	"github.com/chaos-io/maskbrush/session"
	"github.com/chaos-io/maskbrush/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionKey       = "session"
	downloadFilename = "segmented_image.png"
)

type Handler struct {
	cfg      *config.Config
	sessions *session.Manager
}

func NewHandler(cfg *config.Config, sessions *session.Manager) *Handler {
	return &Handler{cfg: cfg, sessions: sessions}
}

// loadSession 按路径参数查找会话，放入上下文
func (h *Handler) loadSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// respondState 返回操作后的展示状态
func respondState(c *gin.Context, s *session.Session, message string) {
	st, err := s.State()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: st})
}

func (h *Handler) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, Response{Success: true, Message: "创建成功", Data: createResp{ID: s.ID()}})
}

func (h *Handler) DestroySession(c *gin.Context) {
	if err := h.sessions.Destroy(c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Upload 处理图片上传，支持 multipart 文件或 url 字段
func (h *Handler) Upload(c *gin.Context) {
	s := current(c)

	name, data, err := h.readUpload(c)
	if err != nil {
		if errors.Is(err, session.ErrEmptyUpload) {
			abort(c, err)
			return
		}
		badRequest(c, err.Error(), nil)
		return
	}

	bounds, err := s.Upload(name, data)
	if err != nil {
		abort(c, err)
		return
	}

	util.Logger.Info("file uploaded",
		zap.String("session", s.ID()),
		zap.String("filename", name),
		zap.String("md5", util.BytesMD5(data)),
		zap.Int("size", len(data)))

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "上传成功",
		Data:    uploadResp{Width: bounds.Dx(), Height: bounds.Dy()},
	})
}

func (h *Handler) readUpload(c *gin.Context) (string, []byte, error) {
	if url := c.PostForm("url"); url != "" {
		data, err := util.DownloadImage(c.Request.Context(), url, h.cfg.Upload.MaxSize)
		if err != nil {
			return "", nil, fmt.Errorf("下载图片失败: %v", err)
		}
		if len(data) == 0 {
			return "", nil, session.ErrEmptyUpload
		}
		return url[strings.LastIndex(url, "/")+1:], data, nil
	}

	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, session.ErrEmptyUpload
		}
		return "", nil, err
	}
	if file.Size == 0 {
		return "", nil, session.ErrEmptyUpload
	}

	// 验证文件大小
	if h.cfg.Upload.MaxSize > 0 && file.Size > h.cfg.Upload.MaxSize {
		return "", nil, fmt.Errorf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024))
	}

	data, err := readFile(file)
	if err != nil {
		return "", nil, err
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !h.isAllowedType(contentType) {
		return "", nil, fmt.Errorf("不支持的文件类型 %s", contentType)
	}
	return file.Filename, data, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

func (h *Handler) isAllowedType(contentType string) bool {
	if len(h.cfg.Upload.AllowedTypes) == 0 {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return slices.Contains(h.cfg.Upload.AllowedTypes, ct)
}

// RemoveBackground 发起抠图并等待结果；已有请求在途时返回 202
func (h *Handler) RemoveBackground(c *gin.Context) {
	s := current(c)

	req, err := s.RunBackgroundRemoval(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	if req == nil {
		st, err := s.State()
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusAccepted, Response{
			Success: true,
			Message: "正在处理中",
			Data:    removalResp{Dropped: true, State: st},
		})
		return
	}

	if err := req.Wait(c.Request.Context()); err != nil {
		abort(c, err)
		return
	}
	st, err := s.State()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "处理成功",
		Data:    removalResp{RequestID: req.ID, State: st},
	})
}

func (h *Handler) Click(c *gin.Context) {
	s := current(c)

	var req clickReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误", err)
		return
	}
	mode, err := rembg.ParseMode(req.Mode)
	if err != nil {
		badRequest(c, "参数错误", err)
		return
	}

	if err := s.Click(c.Request.Context(), req.X, req.Y, mode); err != nil {
		abort(c, err)
		return
	}
	respondState(c, s, "处理成功")
}

func (h *Handler) Regenerate(c *gin.Context) {
	s := current(c)
	if err := s.Regenerate(c.Request.Context()); err != nil {
		abort(c, err)
		return
	}
	respondState(c, s, "处理成功")
}

func (h *Handler) Undo(c *gin.Context) {
	s := current(c)

	outcome, err := s.Undo(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	st, err := s.State()
	if err != nil {
		abort(c, err)
		return
	}

	message := "已撤销"
	if outcome == session.UndoResetToSource {
		message = "没有可撤销的步骤，已显示原图"
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    undoResp{Outcome: outcome.String(), State: st},
	})
}

// SetBrush 修改工具和直径，缺省字段保持不变
func (h *Handler) SetBrush(c *gin.Context) {
	s := current(c)

	var req brushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误", err)
		return
	}
	if req.Tool != nil {
		s.SetTool(*req.Tool)
	}
	if req.Diameter != nil {
		s.SetDiameter(min(max(*req.Diameter, h.cfg.Brush.MinDiameter), h.cfg.Brush.MaxDiameter))
	}
	respondState(c, s, "设置成功")
}

func (h *Handler) ApplyStroke(c *gin.Context) {
	s := current(c)

	var stroke mask.Stroke
	if err := c.ShouldBindJSON(&stroke); err != nil {
		badRequest(c, "参数错误", err)
		return
	}
	if err := stroke.Validate(); err != nil {
		abort(c, err)
		return
	}
	if err := s.ApplyStroke(stroke); err != nil {
		abort(c, err)
		return
	}
	respondState(c, s, "绘制成功")
}

func (h *Handler) BeginPreview(c *gin.Context) {
	s := current(c)
	s.BeginPreview()
	respondState(c, s, "显示原图")
}

func (h *Handler) EndPreview(c *gin.Context) {
	s := current(c)
	s.EndPreview()
	respondState(c, s, "显示编辑结果")
}

func (h *Handler) State(c *gin.Context) {
	respondState(c, current(c), "查询成功")
}

// Display 按展示句柄返回 PNG，已释放的句柄返回 404
func (h *Handler) Display(c *gin.Context) {
	data, ok := current(c).Display(c.Param("handle"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Success: false, Message: "展示句柄已失效"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

func (h *Handler) Download(c *gin.Context) {
	s := current(c)

	trim := c.Query("trim") == "1" || c.Query("trim") == "true"
	data, err := s.DownloadMask(trim)
	if err != nil {
		abort(c, err)
		return
	}
	attachment(c, data)
}

func (h *Handler) DownloadRemote(c *gin.Context) {
	data, err := current(c).DownloadRemote(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	attachment(c, data)
}

func attachment(c *gin.Context, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename))
	c.Data(http.StatusOK, "image/png", data)
}
