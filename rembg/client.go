package rembg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/chaos-io/maskbrush/util"
	nhttp "github.com/chaos-io/maskbrush/util/http"
	"go.uber.org/zap"
)

const (
	removeBackgroundPath = "/remove-background"
	uploadImagePath      = "/upload_image"
	clickPath            = "/click"
	undoPath             = "/undo"
	regeneratePath       = "/regenerate_masked_image"
	downloadImagePath    = "/download_image"
)

// Client 同时实现 Remover 和 Segmenter
type Client struct {
	baseURL string
	timeout time.Duration
	cli     nhttp.IClient
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		return NewClientWithHTTP(baseURL, timeout, nhttp.NewHTTPClient())
	}
	return NewClientWithHTTP(baseURL, timeout, nhttp.NewHTTPClientWithTimeout(timeout))
}

func NewClientWithHTTP(baseURL string, timeout time.Duration, cli nhttp.IClient) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		cli:     cli,
	}
}

type resultImageResp struct {
	ResultImage string `json:"result_image"`
	Error       string `json:"error"`
}

type clickReq struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Mode Mode `json:"mode"`
}

/*
	curl -X POST "$BASE_URL/remove-background" -F "image=@my_image.png" -o out.png
*/
func (c *Client) Remove(ctx context.Context, name string, data []byte) ([]byte, error) {
	var out []byte
	if err := c.postImage(ctx, removeBackgroundPath, name, data, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoResult
	}
	return out, nil
}

func (c *Client) UploadImage(ctx context.Context, name string, data []byte) error {
	return c.postImage(ctx, uploadImagePath, name, data, nil)
}

/*
	curl -X POST "$BASE_URL/click" \
	  -H "Content-Type: application/json" \
	  -d '{"x": 10, "y": 20, "mode": "select"}'

{"result_image": "iVBORw0KGgo..."}
*/
func (c *Client) Click(ctx context.Context, x, y int, mode Mode) ([]byte, error) {
	return c.postForResult(ctx, clickPath, &clickReq{X: x, Y: y, Mode: mode})
}

// Undo 服务端撤销栈为空时返回 ErrHistoryEmpty
func (c *Client) Undo(ctx context.Context) ([]byte, error) {
	data, err := c.postForResult(ctx, undoPath, nil)
	if err == nil {
		return data, nil
	}

	var statusErr *nhttp.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest {
		return nil, ErrHistoryEmpty
	}
	if errors.Is(err, ErrNoResult) {
		return nil, ErrHistoryEmpty
	}
	return nil, err
}

func (c *Client) Regenerate(ctx context.Context) ([]byte, error) {
	return c.postForResult(ctx, regeneratePath, nil)
}

func (c *Client) Download(ctx context.Context) ([]byte, error) {
	var out []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + downloadImagePath,
		Method:     http.MethodPost,
		Response:   &out,
		Timeout:    c.timeout,
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return out, nil
}

func (c *Client) postImage(ctx context.Context, path, name string, data []byte, response *[]byte) error {
	if name == "" {
		name = "image.png"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + path,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Timeout:    c.timeout,
	}
	if response != nil {
		reqParam.Response = response
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	util.Logger.Debug("image posted",
		zap.String("path", path),
		zap.Int("status", reqParam.StatusCode),
		zap.Int("bytes", len(data)))
	return nil
}

func (c *Client) postForResult(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	resp := &resultImageResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + path,
		Method:     http.MethodPost,
		Response:   resp,
		Timeout:    c.timeout,
	}
	if payload != nil {
		reqParam.Header = map[string]string{"Content-Type": "application/json"}
		reqParam.Body = payload
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.ResultImage == "" {
		return nil, ErrNoResult
	}
	return decodeBase64Image(resp.ResultImage)
}

// decodeBase64Image 兼容 data URL 前缀
func decodeBase64Image(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode result_image: %w", err)
	}
	return data, nil
}
