package session

import "errors"

var (
	// ErrEmptyUpload 没有选择文件
	ErrEmptyUpload = errors.New("no image selected")
	// ErrNoImage 操作需要先上传图片
	ErrNoImage = errors.New("no image uploaded")
	// ErrRemovalFailed 外部服务返回非 200 或网络失败
	ErrRemovalFailed = errors.New("background removal failed")
	// ErrEmptyHistory 没有可撤销的步骤，回退到原图展示
	ErrEmptyHistory = errors.New("nothing to undo")
	// ErrNoWorkingMask 还没有可编辑的蒙版
	ErrNoWorkingMask = errors.New("no processed image to edit")
	// ErrPromptsDisabled 未配置点选分割服务
	ErrPromptsDisabled = errors.New("point prompts are not available")
	// ErrSuperseded 请求结果因为新的上传而被丢弃
	ErrSuperseded = errors.New("request superseded by a newer upload")
	// ErrPromptInFlight 上一次点选还没有返回
	ErrPromptInFlight  = errors.New("a prompt is already in flight")
	ErrSessionNotFound = errors.New("session not found")
)
