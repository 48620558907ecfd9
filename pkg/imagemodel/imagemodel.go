package imagemodel

import (
	"context"
	"errors"
	"fmt"

	"promogen/settings"
)

// ErrEmptyImage 模型调用成功但没有返回图片
var ErrEmptyImage = errors.New("model returned no image")

// Request 一次模型调用的全部输入，height/width 已经是 8 的倍数
type Request struct {
	Prompt         string
	NegativePrompt string
	Strength       float64
	GuidanceScale  int
	Steps          int
	Seed           int64
	Height         int
	Width          int
}

// Generator 图像模型能力，返回原始图片字节
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// GeneratorFunc 便于测试时替换
type GeneratorFunc func(ctx context.Context, req Request) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// New 按配置选择后端
func New(ctx context.Context, cfg settings.ModelConfig) (Generator, error) {
	switch cfg.Backend {
	case "diffusion":
		return NewDiffusion(cfg.ModelServiceURL(), cfg.Timeout), nil
	case "ark":
		if cfg.ArkAPIKey == "" {
			return nil, errors.New("ARK_API_KEY is required for the ark backend")
		}
		return NewArk(cfg.ArkAPIKey, cfg.ArkModel, cfg.Timeout), nil
	case "imagen":
		return NewImagen(ctx, cfg.GeminiKey, cfg.ImagenModel)
	}
	return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
}
