package imagemodel

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type imagenClient interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Imagen 通过 genai 调用 Imagen 模型，height/width 折算为最接近的宽高比
type Imagen struct {
	models imagenClient
	model  string
}

func NewImagen(ctx context.Context, apiKey, modelName string) (*Imagen, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Imagen{models: client.Models, model: modelName}, nil
}

func (g *Imagen) Generate(ctx context.Context, req Request) ([]byte, error) {
	guidance := float32(req.GuidanceScale)
	seed := int32(req.Seed)
	resp, err := g.models.GenerateImages(ctx, g.model, req.Prompt, &genai.GenerateImagesConfig{
		NegativePrompt: req.NegativePrompt,
		NumberOfImages: 1,
		AspectRatio:    AspectRatio(req.Width, req.Height),
		GuidanceScale:  &guidance,
		Seed:           &seed,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("imagen generate: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyImage
	}
	for _, img := range resp.GeneratedImages {
		if img == nil {
			continue
		}
		if img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("imagen filtered: %s", img.RAIFilteredReason)
		}
		if img.Image != nil && len(img.Image.ImageBytes) > 0 {
			return img.Image.ImageBytes, nil
		}
	}
	return nil, ErrEmptyImage
}

// Imagen 只接受固定的几种宽高比
var aspectRatios = []struct {
	name  string
	ratio float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4},
	{"4:3", 4.0 / 3},
	{"9:16", 9.0 / 16},
	{"16:9", 16.0 / 9},
}

// AspectRatio 选出与 width/height 最接近的宽高比
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	r := float64(width) / float64(height)
	best, diff := aspectRatios[0].name, -1.0
	for _, ar := range aspectRatios {
		d := r - ar.ratio
		if d < 0 {
			d = -d
		}
		if diff < 0 || d < diff {
			best, diff = ar.name, d
		}
	}
	return best
}
