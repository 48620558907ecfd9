package logic

import (
	"math"

	"promogen/models"
	"promogen/settings"
)

// SamplerConfig 采样区间，step 与 seed 为进程级常量
type SamplerConfig struct {
	StrengthLow  float64
	StrengthHigh float64
	GuidanceLow  int
	GuidanceHigh int
	Steps        int
	Seed         int64
}

// SamplerConfigFrom 从全局配置取采样参数
func SamplerConfigFrom(m settings.ModelConfig) SamplerConfig {
	return SamplerConfig{
		StrengthLow:  m.StrengthLow,
		StrengthHigh: m.StrengthHigh,
		GuidanceLow:  m.GuidanceLow,
		GuidanceHigh: m.GuidanceHigh,
		Steps:        m.Steps,
		Seed:         m.Seed,
	}
}

type Sampler struct {
	src RandomSource
	cfg SamplerConfig
}

func NewSampler(src RandomSource, cfg SamplerConfig) *Sampler {
	return &Sampler{src: src, cfg: cfg}
}

// Sample strength 取 [low, high] 均匀分布并保留两位小数
// guidance 取 [low, high) 整数均匀分布
func (s *Sampler) Sample() models.GenerationParameters {
	strength := s.cfg.StrengthLow + s.src.Float64()*(s.cfg.StrengthHigh-s.cfg.StrengthLow)
	strength = math.Round(strength*100) / 100

	guidance := s.cfg.GuidanceLow + int(s.src.Float64()*float64(s.cfg.GuidanceHigh-s.cfg.GuidanceLow))
	if guidance >= s.cfg.GuidanceHigh {
		guidance = s.cfg.GuidanceHigh - 1
	}

	return models.GenerationParameters{
		Strength:      strength,
		GuidanceScale: guidance,
		Steps:         s.cfg.Steps,
		Seed:          s.cfg.Seed,
	}
}

// NormalizeDimension 向下取整到 8 的倍数，模型的潜空间按 8 像素划分
func NormalizeDimension(v int) int {
	return (v / 8) * 8
}
