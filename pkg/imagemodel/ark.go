package imagemodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
	"go.uber.org/zap"
)

type fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Ark 火山方舟图片生成，返回 URL 后再下载图片
// 方舟接口不支持负向提示词与 strength，只传 guidance_scale 和 seed
type Ark struct {
	generate  func(ctx context.Context, req model.GenerateImagesRequest) (model.ImagesResponse, error)
	http      fetcher
	modelName string
}

func NewArk(apiKey, modelName string, timeout time.Duration) *Ark {
	client := arkruntime.NewClientWithApiKey(apiKey)
	return &Ark{
		generate: func(ctx context.Context, req model.GenerateImagesRequest) (model.ImagesResponse, error) {
			return client.GenerateImages(ctx, req)
		},
		http:      httpkit.New(timeout),
		modelName: modelName,
	}
}

func (a *Ark) Generate(ctx context.Context, req Request) ([]byte, error) {
	generateReq := model.GenerateImagesRequest{
		Model:          a.modelName,
		Prompt:         req.Prompt,
		Size:           volcengine.String(fmt.Sprintf("%dx%d", req.Width, req.Height)),
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
		Seed:           volcengine.Int64(req.Seed),
		GuidanceScale:  volcengine.Float64(float64(req.GuidanceScale)),
	}

	start := time.Now()
	resp, err := a.generate(ctx, generateReq)
	zap.L().Debug("ark GenerateImages", zap.Duration("cost", time.Since(start)))
	if err != nil {
		return nil, fmt.Errorf("call GenerateImages: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("ark returned error: %s - %s", resp.Error.Code, resp.Error.Message)
	}

	for _, image := range resp.Data {
		if image.Url == nil || *image.Url == "" {
			continue
		}
		b, err := a.http.FetchBytes(ctx, *image.Url)
		if err != nil {
			return nil, fmt.Errorf("download generated image: %w", err)
		}
		if len(b) == 0 {
			return nil, errors.New("downloaded image is empty")
		}
		return b, nil
	}
	return nil, ErrEmptyImage
}
