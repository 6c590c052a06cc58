package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TikaClient 调用 Apache Tika 的 /tika 接口提取纯文本，图片走 tesseract OCR
type TikaClient struct {
	ServerURL string
	Client    *http.Client
	ocrLang   string
}

// TikaOption 配置 TikaClient
type TikaOption func(*TikaClient)

// WithTimeout HTTP 超时
func WithTimeout(timeout time.Duration) TikaOption {
	return func(c *TikaClient) {
		if timeout > 0 {
			c.Client.Timeout = timeout
		}
	}
}

// WithOCRLanguage tesseract 语言包，例如 "por"
func WithOCRLanguage(lang string) TikaOption {
	return func(c *TikaClient) {
		c.ocrLang = lang
	}
}

// NewTikaClient 创建 Tika 客户端
func NewTikaClient(serverURL string, options ...TikaOption) *TikaClient {
	c := &TikaClient{
		ServerURL: strings.TrimRight(serverURL, "/"),
		Client:    &http.Client{Timeout: 60 * time.Second},
		ocrLang:   "por",
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Extract 上传文件内容并返回 Tika 识别出的纯文本
func (c *TikaClient) Extract(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.ServerURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")
	if filename != "" {
		req.Header.Set("X-Tika-Resource-Name", filename)
	}
	if c.ocrLang != "" {
		req.Header.Set("X-Tika-OCRLanguage", c.ocrLang)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}
	return string(body), nil
}
