package imagemodel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

type poster interface {
	PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error)
}

// Diffusion 调用独立部署的 stable diffusion 服务（txt2img 接口）
type Diffusion struct {
	http     poster
	endpoint string
}

// NewDiffusion 模型服务在内网（ml_model），需要跳过 httpkit 的地址校验；GPU 推理不重试
func NewDiffusion(baseURL string, timeout time.Duration) *Diffusion {
	return &Diffusion{
		http:     httpkit.New(timeout, httpkit.WithSkipNetworkValidation(true), httpkit.WithMaxRetries(0)),
		endpoint: strings.TrimRight(baseURL, "/") + "/sdapi/v1/txt2img",
	}
}

type txt2imgRequest struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	DenoisingStrength float64 `json:"denoising_strength"`
	CfgScale          float64 `json:"cfg_scale"`
	Steps             int     `json:"steps"`
	Seed              int64   `json:"seed"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	BatchSize         int     `json:"batch_size"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

func (d *Diffusion) Generate(ctx context.Context, req Request) ([]byte, error) {
	raw, err := d.http.PostJSONAndFetchBytes(ctx, d.endpoint, txt2imgRequest{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		DenoisingStrength: req.Strength,
		CfgScale:          float64(req.GuidanceScale),
		Steps:             req.Steps,
		Seed:              req.Seed,
		Width:             req.Width,
		Height:            req.Height,
		BatchSize:         1,
	})
	if err != nil {
		return nil, fmt.Errorf("txt2img request failed: %w", err)
	}

	var out txt2imgResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode txt2img response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("txt2img: %s", out.Error)
	}
	if len(out.Images) == 0 {
		return nil, ErrEmptyImage
	}

	// 部分部署会带上 data URI 前缀
	b64 := out.Images[0]
	if i := strings.Index(b64, ","); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
