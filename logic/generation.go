package logic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promogen/models"
	"promogen/pkg/imagemodel"
	"promogen/pkg/queue"
)

// Outcome 一次生成的结果类别，由网关决定对应的 HTTP 状态
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeModelFailure
	OutcomeStoreFailure
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeModelFailure:
		return "model_failure"
	case OutcomeStoreFailure:
		return "store_failure"
	case OutcomeRejected:
		return "rejected"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// GenerationResult Image 只在 OutcomeOK 时有值，Record 在写库成功后 ID 非零
type GenerationResult struct {
	Outcome Outcome
	Image   []byte
	Record  *models.GenerationRecord
	Err     error
}

// GenerationStore interactions 的写入能力
type GenerationStore interface {
	InsertGeneration(ctx context.Context, rec *models.GenerationRecord) error
}

// Runner 串行执行模型调用
type Runner interface {
	Do(ctx context.Context, fn queue.Job) error
}

// EventPublisher 生成结束后的通知，失败只记日志
type EventPublisher interface {
	Publish(ctx context.Context, ev models.GenerationEvent) error
}

type GeneratorConfig struct {
	ImageDir        string
	MaxDimensionSum int
	ModelTimeout    time.Duration
}

// Generator 生成流程编排：提示词、采样、调用模型、保存图片、写库、记住会话、发布事件
type Generator struct {
	prompts *PromptSynthesizer
	sampler *Sampler
	model   imagemodel.Generator
	runner  Runner
	store   GenerationStore
	session *FeedbackSession
	events  []EventPublisher
	cfg     GeneratorConfig
	newID   func() string
	now     func() time.Time
}

func NewGenerator(
	prompts *PromptSynthesizer,
	sampler *Sampler,
	model imagemodel.Generator,
	runner Runner,
	store GenerationStore,
	session *FeedbackSession,
	cfg GeneratorConfig,
	events ...EventPublisher,
) *Generator {
	return &Generator{
		prompts: prompts,
		sampler: sampler,
		model:   model,
		runner:  runner,
		store:   store,
		session: session,
		events:  events,
		cfg:     cfg,
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// ImageFileName 用户 ID 原样透传，写文件名前替换掉路径分隔符等字符
func ImageFileName(userID, generationID, ext string) string {
	return fmt.Sprintf("image_%s_%s%s", unsafeFileChars.ReplaceAllString(userID, "_"), generationID, ext)
}

// Generate 每次到达这里的请求都恰好写一条 interactions 记录，包括模型失败与队列拒绝
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest) *GenerationResult {
	req = req.WithDefaults()
	log := zap.L().With(zap.String("user_id", req.UserID))

	prompt, negative, err := g.prompts.Synthesize(*req.Age, req.Sex, req.Product, req.CustomPrompt)
	if err != nil {
		// 模板是固定的，这里不应该出错
		return &GenerationResult{Outcome: OutcomeModelFailure, Err: fmt.Errorf("%w: %v", ErrModelFailure, err)}
	}
	params := g.sampler.Sample()

	height, width := NormalizeDimension(req.Height), NormalizeDimension(req.Width)
	if g.cfg.MaxDimensionSum > 0 && req.Height+req.Width > g.cfg.MaxDimensionSum {
		log.Warn("requested dimensions exceed the advisory ceiling",
			zap.Int("height", req.Height), zap.Int("width", req.Width),
			zap.Int("ceiling", g.cfg.MaxDimensionSum))
	}

	generationID := g.newID()
	rec := &models.GenerationRecord{
		GenerationID: generationID,
		UserID:       req.UserID,
		ImageURL:     filepath.Join(g.cfg.ImageDir, ImageFileName(req.UserID, generationID, ".jpg")),
		Metadata: models.Metadata{
			Age:            *req.Age,
			Sex:            string(req.Sex),
			Product:        string(req.Product),
			CustomPrompt:   req.CustomPrompt,
			Height:         req.Height,
			Width:          req.Width,
			Prompt:         prompt,
			NegativePrompt: negative,
			Strength:       params.Strength,
			GuidanceScale:  params.GuidanceScale,
			Status:         models.StatusSucceeded,
		},
	}
	log = log.With(zap.String("generation_id", generationID))

	var image []byte
	err = g.runner.Do(ctx, func(ctx context.Context) error {
		if g.cfg.ModelTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.cfg.ModelTimeout)
			defer cancel()
		}
		start := time.Now()
		img, err := g.model.Generate(ctx, imagemodel.Request{
			Prompt:         prompt,
			NegativePrompt: negative,
			Strength:       params.Strength,
			GuidanceScale:  params.GuidanceScale,
			Steps:          params.Steps,
			Seed:           params.Seed,
			Height:         height,
			Width:          width,
		})
		log.Info("model call finished", zap.Duration("cost", time.Since(start)), zap.Error(err))
		if err != nil {
			return err
		}
		if len(img) == 0 {
			return imagemodel.ErrEmptyImage
		}
		image = img
		return nil
	})

	outcome := OutcomeOK
	var outcomeErr error
	switch {
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		outcome, outcomeErr = OutcomeRejected, fmt.Errorf("%w: %w", ErrRejected, err)
	case err != nil:
		log.Error("failed to generate image", zap.Error(err))
		outcome, outcomeErr = OutcomeModelFailure, fmt.Errorf("%w: %w", ErrModelFailure, err)
	default:
		rec.ImageURL = filepath.Join(g.cfg.ImageDir, ImageFileName(req.UserID, generationID, imageExt(image)))
		if err := writeImage(rec.ImageURL, image); err != nil {
			log.Error("failed to save image", zap.String("path", rec.ImageURL), zap.Error(err))
			outcome, outcomeErr = OutcomeStoreFailure, fmt.Errorf("%w: save image: %v", ErrStoreFailure, err)
			image = nil
		}
	}
	if outcome != OutcomeOK {
		rec.Metadata.Status = models.StatusFailed
		rec.Metadata.Error = outcomeErr.Error()
	}

	// 客户端断开也要把记录写完
	persistCtx := context.WithoutCancel(ctx)
	rec.CreatedAt = g.now()
	if err := g.store.InsertGeneration(persistCtx, rec); err != nil {
		log.Error("failed to store generation record", zap.Error(err))
		g.publish(persistCtx, rec)
		return &GenerationResult{
			Outcome: OutcomeStoreFailure,
			Record:  rec,
			Err:     fmt.Errorf("%w: %v", ErrStoreFailure, err),
		}
	}

	if outcome == OutcomeOK && g.session != nil {
		if err := g.session.Remember(persistCtx, req.UserID, generationID, rec.ImageURL); err != nil {
			log.Error("failed to remember generation", zap.Error(err))
		}
	}
	g.publish(persistCtx, rec)

	return &GenerationResult{Outcome: outcome, Image: image, Record: rec, Err: outcomeErr}
}

func (g *Generator) publish(ctx context.Context, rec *models.GenerationRecord) {
	ev := models.GenerationEvent{
		Code:         http.StatusOK,
		GenerationID: rec.GenerationID,
		UserID:       rec.UserID,
		ImagePath:    rec.ImageURL,
		Status:       rec.Metadata.Status,
		Error:        rec.Metadata.Error,
		CreatedAt:    rec.CreatedAt.Unix(),
	}
	if rec.Metadata.Status != models.StatusSucceeded {
		ev.Code = http.StatusInternalServerError
	}
	for _, p := range g.events {
		if err := p.Publish(ctx, ev); err != nil {
			zap.L().Warn("publish generation event failed",
				zap.String("generation_id", rec.GenerationID), zap.Error(err))
		}
	}
}

func imageExt(b []byte) string {
	switch http.DetectContentType(b) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}

func writeImage(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
