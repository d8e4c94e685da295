package server

import (
	"errors"
	"net/http"

	"github.com/chaos-io/maskbrush/mask"
	"github.com/chaos-io/maskbrush/raster"
	"github.com/chaos-io/maskbrush/session"
	"github.com/chaos-io/maskbrush/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorMessages = []struct {
	err     error
	status  int
	message string
}{
	{session.ErrSessionNotFound, http.StatusNotFound, "会话不存在"},
	{session.ErrEmptyUpload, http.StatusBadRequest, "请选择图片"},
	{raster.ErrDecode, http.StatusBadRequest, "无法识别的图片"},
	{mask.ErrNoTool, http.StatusBadRequest, "请先选择擦除或恢复工具"},
	{mask.ErrEmptyStroke, http.StatusBadRequest, "笔画没有点"},
	{session.ErrNoImage, http.StatusConflict, "请先上传图片"},
	{session.ErrNoWorkingMask, http.StatusConflict, "请先去除背景"},
	{session.ErrSuperseded, http.StatusConflict, "图片已被替换"},
	{session.ErrPromptInFlight, http.StatusConflict, "上一次点选仍在处理中"},
	{session.ErrPromptsDisabled, http.StatusNotImplemented, "未启用点选分割"},
	{session.ErrRemovalFailed, http.StatusBadGateway, "背景去除失败"},
	{raster.ErrDimensionMismatch, http.StatusBadGateway, "背景去除结果不可用"},
	{raster.ErrEmptyMask, http.StatusConflict, "蒙版已全部擦除"},
}

func statusOf(err error) (int, string) {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "内部错误"
}

// abort 按错误类型返回对应的状态码
func abort(c *gin.Context, err error) {
	status, message := statusOf(err)
	if status >= http.StatusInternalServerError {
		util.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		util.Logger.Info("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
