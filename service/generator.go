package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GenerateRequest 发给图像生成 Worker 的一次调用。
type GenerateRequest struct {
	TemplateImageURL string  `json:"template_image_url"`
	PatternImageURL  string  `json:"pattern_image_url"`
	Prompt           string  `json:"prompt"`
	AspectRatio      string  `json:"aspect_ratio"`
	Size             string  `json:"size"`
	Temperature      float64 `json:"temperature"`
	Seed             int     `json:"seed"`
}

// GenerateResult 成功时返回图片字节和 MIME 类型。
type GenerateResult struct {
	Data     []byte
	MimeType string
}

// Generator 图像生成协作方的窄接口，测试里用脚本化假件替换。
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Compile-time check
var _ Generator = (*WorkerGenerator)(nil)

// WorkerGenerator 通过 HTTP 调用生成 Worker。
// 超时按一次普通 Web 请求的量级设置，超时与其他失败同等对待。
type WorkerGenerator struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewWorkerGenerator(endpoint string, timeout time.Duration, logger *zap.Logger) *WorkerGenerator {
	return &WorkerGenerator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Named("WorkerGenerator"),
	}
}

func (g *WorkerGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	fullURL := g.endpoint + "/v1/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("worker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("worker status code: %d", resp.StatusCode)
	}

	// Worker 要么返回图片（base64 + MIME），要么返回文本/错误。
	// 只有文本没有图片本身就是一种失败，必须翻译成错误而不是当成功处理。
	var raw struct {
		Image *struct {
			Data     string `json:"data"`
			MimeType string `json:"mime_type"`
		} `json:"image"`
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("worker reported failure: %s", raw.Error)
	}
	if raw.Image == nil || raw.Image.Data == "" {
		text := raw.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		g.logger.Warn("Worker 返回了文本而非图片", zap.String("text", text))
		return nil, fmt.Errorf("model returned text instead of an image: %s", text)
	}

	data, err := base64.StdEncoding.DecodeString(raw.Image.Data)
	if err != nil {
		return nil, fmt.Errorf("decode image data failed: %w", err)
	}
	mime := raw.Image.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &GenerateResult{Data: data, MimeType: mime}, nil
}
