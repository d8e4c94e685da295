package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

const (
	downloadTimeout  = 30 * time.Second
	maxDownloadHops  = 5
	downloadDialWait = 10 * time.Second
)

// ErrForbiddenURL 只允许 http/https 和公网地址
var ErrForbiddenURL = errors.New("url is not allowed")

var downloadClient = newDownloadClient(false)

// newDownloadClient allowPrivate 为 false 时拒绝连接内网、回环和链路本地地址，重定向同样检查
func newDownloadClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: downloadDialWait, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		// Control 拿到的是解析后的地址，DNS 指向内网同样会被拒绝
		dialer.Control = func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !publicIP(ip) {
				return fmt.Errorf("%w: %s", ErrForbiddenURL, host)
			}
			return nil
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   downloadTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxDownloadHops {
				return fmt.Errorf("stopped after %d redirects", maxDownloadHops)
			}
			return checkScheme(req.URL)
		},
	}
}

func publicIP(ip net.IP) bool {
	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsMulticast()
}

func checkScheme(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrForbiddenURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrForbiddenURL)
	}
	return nil
}

// DownloadImage 下载图片原始字节，最多读取 maxSize 字节
func DownloadImage(ctx context.Context, rawURL string, maxSize int64) ([]byte, error) {
	return downloadImage(ctx, downloadClient, rawURL, maxSize)
}

func downloadImage(ctx context.Context, client *http.Client, rawURL string, maxSize int64) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbiddenURL, err)
	}
	if err := checkScheme(u); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if maxSize > 0 {
		r = io.LimitReader(resp.Body, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("image exceeds %d bytes", maxSize)
	}
	return data, nil
}
