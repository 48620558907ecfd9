package imagemodel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
	"google.golang.org/genai"
)

var sampleRequest = Request{
	Prompt:         "a vehicle parked",
	NegativePrompt: "avoid digits",
	Strength:       0.75,
	GuidanceScale:  12,
	Steps:          25,
	Seed:           13,
	Height:         720,
	Width:          1280,
}

type mockPoster struct {
	postFunc func(ctx context.Context, url string, data any) ([]byte, error)
}

func (m *mockPoster) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return m.postFunc(ctx, url, data)
}

func TestNewDiffusion_Endpoint(t *testing.T) {
	assert.Equal(t, "http://ml_model:7860/sdapi/v1/txt2img", NewDiffusion("http://ml_model:7860/", time.Second).endpoint)
	assert.Equal(t, "http://ml_model:7860/sdapi/v1/txt2img", NewDiffusion("http://ml_model:7860", time.Second).endpoint)
}

func TestDiffusion_Generate(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	respond := func(resp txt2imgResponse) *mockPoster {
		return &mockPoster{postFunc: func(ctx context.Context, url string, data any) ([]byte, error) {
			return json.Marshal(resp)
		}}
	}

	t.Run("成功返回解码后的图片", func(t *testing.T) {
		var (
			gotURL string
			got    txt2imgRequest
		)
		d := &Diffusion{
			endpoint: "http://ml_model:7860/sdapi/v1/txt2img",
			http: &mockPoster{postFunc: func(ctx context.Context, url string, data any) ([]byte, error) {
				gotURL = url
				req, ok := data.(txt2imgRequest)
				require.True(t, ok)
				got = req
				return json.Marshal(txt2imgResponse{Images: []string{base64.StdEncoding.EncodeToString(png)}})
			}},
		}

		img, err := d.Generate(context.Background(), sampleRequest)
		require.NoError(t, err)
		assert.Equal(t, png, img)
		assert.Equal(t, "http://ml_model:7860/sdapi/v1/txt2img", gotURL)
		assert.Equal(t, 0.75, got.DenoisingStrength)
		assert.Equal(t, 12.0, got.CfgScale)
		assert.Equal(t, 25, got.Steps)
		assert.Equal(t, int64(13), got.Seed)
		assert.Equal(t, 720, got.Height)
		assert.Equal(t, 1280, got.Width)
		assert.Equal(t, 1, got.BatchSize)
		assert.Equal(t, "avoid digits", got.NegativePrompt)
	})

	t.Run("data URI 前缀", func(t *testing.T) {
		d := &Diffusion{http: respond(txt2imgResponse{Images: []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(png)}})}
		img, err := d.Generate(context.Background(), sampleRequest)
		require.NoError(t, err)
		assert.Equal(t, png, img)
	})

	t.Run("服务端错误", func(t *testing.T) {
		upstream := errors.New("HTTP 500: CUDA out of memory")
		d := &Diffusion{http: &mockPoster{postFunc: func(ctx context.Context, url string, data any) ([]byte, error) {
			return nil, upstream
		}}}

		_, err := d.Generate(context.Background(), sampleRequest)
		assert.ErrorIs(t, err, upstream)
		assert.Contains(t, err.Error(), "txt2img request failed")
	})

	t.Run("响应里带错误信息", func(t *testing.T) {
		d := &Diffusion{http: respond(txt2imgResponse{Error: "OutOfMemoryError"})}
		_, err := d.Generate(context.Background(), sampleRequest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OutOfMemoryError")
	})

	t.Run("没有图片", func(t *testing.T) {
		d := &Diffusion{http: respond(txt2imgResponse{Images: []string{}})}
		_, err := d.Generate(context.Background(), sampleRequest)
		assert.ErrorIs(t, err, ErrEmptyImage)
	})

	t.Run("响应不是 JSON", func(t *testing.T) {
		d := &Diffusion{http: &mockPoster{postFunc: func(ctx context.Context, url string, data any) ([]byte, error) {
			return []byte("<html>bad gateway</html>"), nil
		}}}
		_, err := d.Generate(context.Background(), sampleRequest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode txt2img response")
	})
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return m.fetchFunc(ctx, url)
}

func TestArk_Generate(t *testing.T) {
	t.Run("下载返回的第一张图片", func(t *testing.T) {
		var sent model.GenerateImagesRequest
		a := &Ark{
			modelName: "seedream",
			generate: func(ctx context.Context, req model.GenerateImagesRequest) (model.ImagesResponse, error) {
				sent = req
				var resp model.ImagesResponse
				require.NoError(t, json.Unmarshal([]byte(`{"data":[{"url":"https://img.example/1.jpg"}]}`), &resp))
				return resp, nil
			},
			http: &mockFetcher{fetchFunc: func(ctx context.Context, url string) ([]byte, error) {
				assert.Equal(t, "https://img.example/1.jpg", url)
				return []byte("jpeg"), nil
			}},
		}

		img, err := a.Generate(context.Background(), sampleRequest)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg"), img)
		assert.Equal(t, "seedream", sent.Model)
		assert.Equal(t, "1280x720", volcengine.StringValue(sent.Size))
		assert.Equal(t, int64(13), volcengine.Int64Value(sent.Seed))
	})

	t.Run("接口报错", func(t *testing.T) {
		a := &Ark{
			generate: func(ctx context.Context, req model.GenerateImagesRequest) (model.ImagesResponse, error) {
				return model.ImagesResponse{}, errors.New("quota exceeded")
			},
		}
		_, err := a.Generate(context.Background(), sampleRequest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}

type mockImagen struct {
	generateFunc func(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

func (m *mockImagen) GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return m.generateFunc(ctx, model, prompt, config)
}

func TestImagen_Generate(t *testing.T) {
	t.Run("传递负向提示词与参数", func(t *testing.T) {
		g := &Imagen{model: "imagen-4", models: &mockImagen{
			generateFunc: func(ctx context.Context, m string, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
				assert.Equal(t, "imagen-4", m)
				assert.Equal(t, sampleRequest.Prompt, prompt)
				assert.Equal(t, "avoid digits", cfg.NegativePrompt)
				assert.Equal(t, "16:9", cfg.AspectRatio)
				require.NotNil(t, cfg.GuidanceScale)
				assert.Equal(t, float32(12), *cfg.GuidanceScale)
				return &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
					{Image: &genai.Image{ImageBytes: []byte("img")}},
				}}, nil
			},
		}}

		img, err := g.Generate(context.Background(), sampleRequest)
		require.NoError(t, err)
		assert.Equal(t, []byte("img"), img)
	})

	t.Run("被安全策略过滤", func(t *testing.T) {
		g := &Imagen{models: &mockImagen{
			generateFunc: func(ctx context.Context, m string, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
				return &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
					{RAIFilteredReason: "person"},
				}}, nil
			},
		}}
		_, err := g.Generate(context.Background(), sampleRequest)
		require.Error(t, err)
	})
}

func TestAspectRatio(t *testing.T) {
	assert.Equal(t, "1:1", AspectRatio(720, 720))
	assert.Equal(t, "16:9", AspectRatio(1280, 720))
	assert.Equal(t, "9:16", AspectRatio(720, 1280))
	assert.Equal(t, "4:3", AspectRatio(1024, 768))
	assert.Equal(t, "1:1", AspectRatio(0, 10))
}
