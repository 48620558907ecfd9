package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"promogen/controller"
	"promogen/dao/db"
	"promogen/dao/store"
	"promogen/logger"
	"promogen/logic"
	"promogen/models"
	"promogen/pkg/imagemodel"
	"promogen/pkg/queue"
	"promogen/pkg/sse"
	"promogen/router"
	"promogen/settings"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.LogLevel, cfg.GinMode); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer zap.L().Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *settings.Config) error {
	if err := controller.InitTrans("zh"); err != nil {
		return fmt.Errorf("init validator trans: %w", err)
	}

	// 1.数据库
	st, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.WaitReady(ctx, cfg.DB.ReadyTimeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	checkers := map[string]controller.Checker{"db": st}

	// 2.反馈会话
	var sessions store.SessionStore
	if cfg.Redis.Addr != "" {
		rs, err := store.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		defer rs.Close()
		sessions = rs
		checkers["session"] = rs
	} else {
		zap.L().Info("REDIS_ADDR not set, using in-process session cache")
		sessions = store.NewMemory(cfg.Session.TTL)
	}

	// 3.图像模型
	model, err := imagemodel.New(ctx, cfg.Model)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// 4.事件：配置了 AMQP 时经交换机转发给每个副本的 SSE hub
	hub := sse.NewHub()
	sse.SetDefaultHub(hub)
	g.Go(func() error { return hub.Run(gctx) })

	var publisher logic.EventPublisher = hub
	if cfg.AMQP.DSN != "" {
		if err := queue.InitEventQueue(cfg.AMQP.DSN, cfg.AMQP.Exchange); err != nil {
			return fmt.Errorf("init event queue: %w", err)
		}
		eq, err := queue.GetEventQueue()
		if err != nil {
			return err
		}
		defer eq.Close()
		publisher = eq
		g.Go(func() error {
			return eq.Consume(gctx, func(ev models.GenerationEvent) error {
				return hub.Publish(gctx, ev)
			})
		})
	}

	// 5.生成流程
	wq := queue.NewWorkQueue(cfg.Queue.Depth, cfg.Queue.Workers, cfg.Queue.Backpressure)
	g.Go(func() error { return wq.Run(gctx) })

	src := logic.NewRandomSource(0)
	prompts, err := logic.NewPromptSynthesizer(src)
	if err != nil {
		return err
	}
	session := logic.NewFeedbackSession(sessions, st, cfg.Session.TTL)
	gen := logic.NewGenerator(
		prompts,
		logic.NewSampler(src, logic.SamplerConfigFrom(cfg.Model)),
		model,
		wq,
		st,
		session,
		logic.GeneratorConfig{
			ImageDir:        cfg.ImageDir,
			MaxDimensionSum: cfg.MaxDimensionSum,
			ModelTimeout:    cfg.Model.Timeout,
		},
		publisher,
	)

	// 6.HTTP
	h := controller.NewHandler(gen, session, st, checkers)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.Setup(h, cfg.GinMode, cfg.GenerateRPS),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		zap.L().Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("model_backend", cfg.Model.Backend),
			zap.String("db_driver", cfg.DB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
