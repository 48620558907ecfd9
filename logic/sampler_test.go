package logic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"promogen/settings"
)

var defaultSamplerConfig = SamplerConfigFrom(settings.Default().Model)

func TestSampler_ScriptedDraws(t *testing.T) {
	cases := []struct {
		name     string
		draws    []float64
		strength float64
		guidance int
	}{
		{"下界", []float64{0, 0}, 0.7, 10},
		{"中间", []float64{0.5, 0.5}, 0.8, 12},
		{"上界", []float64{0.999999, 0.999999}, 0.9, 14},
		{"四舍五入到两位", []float64{0.123, 0.2}, 0.72, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSampler(&scriptedSource{vals: tc.draws}, defaultSamplerConfig)
			p := s.Sample()
			assert.Equal(t, tc.strength, p.Strength)
			assert.Equal(t, tc.guidance, p.GuidanceScale)
			assert.Equal(t, 25, p.Steps)
			assert.Equal(t, int64(13), p.Seed)
		})
	}
}

func TestSampler_Ranges(t *testing.T) {
	s := NewSampler(NewRandomSource(42), defaultSamplerConfig)
	for i := 0; i < 2000; i++ {
		p := s.Sample()
		assert.GreaterOrEqual(t, p.Strength, 0.7)
		assert.LessOrEqual(t, p.Strength, 0.9)
		assert.InDelta(t, p.Strength, math.Round(p.Strength*100)/100, 1e-9)
		assert.GreaterOrEqual(t, p.GuidanceScale, 10)
		assert.Less(t, p.GuidanceScale, 15)
	}
}

func TestNormalizeDimension(t *testing.T) {
	cases := map[int]int{
		723:  720,
		65:   64,
		720:  720,
		8:    8,
		15:   8,
		1081: 1080,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDimension(in), "input %d", in)
		assert.Equal(t, 8*(in/8), NormalizeDimension(in))
	}
}
