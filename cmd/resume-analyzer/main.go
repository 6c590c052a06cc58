package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"smart-resume-analyzer/internal/api/handler"
	"smart-resume-analyzer/internal/api/router"
	"smart-resume-analyzer/internal/config"
	"smart-resume-analyzer/internal/llm"
	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/metrics"
	"smart-resume-analyzer/internal/ocr"
	"smart-resume-analyzer/internal/processor"
	"smart-resume-analyzer/internal/storage"
	"smart-resume-analyzer/internal/tracing"
)

var (
	version     = "1.0.0"                 //nolint:gochecknoglobals
	serviceName = "smart-resume-analyzer" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	var writeSample bool
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时按默认路径查找")
	pflag.BoolVar(&writeSample, "init-config", false, "在 --config 指定的位置生成示例配置后退出")
	pflag.Parse()

	if writeSample {
		if configPath == "" {
			configPath = "config.yaml"
		}
		if err := config.CreateSampleConfig(configPath); err != nil {
			logger.Fatal().Err(err).Str("path", configPath).Msg("生成示例配置失败")
		}
		logger.Info().Str("path", configPath).Msg("示例配置已生成")
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("加载配置失败")
	}

	if err := logger.Init(logger.Config(cfg.Logger)); err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
	}
	logger.Logger = logger.Logger.With().Str("app", serviceName).Str("version", version).Logger()
	logger.Info().Str("config", configPath).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = serviceName
	}
	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Config(cfg.Tracing))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	m := metrics.NewManager(metrics.WithRuntimeCollectors())

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	if storageManager.Relay != nil {
		storageManager.Relay.Start(ctx)
	}

	model, err := llm.NewFromConfig(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("初始化模型失败")
	}

	extractor, err := newExtractor(ctx, cfg, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化文本提取器失败")
	}

	summarizer := processor.NewSummarizer(model,
		processor.WithSummaryRecorder(m),
		processor.WithSummarizerSettings(processor.SummarizerSettings{
			MinInputLength:        cfg.Summarizer.MinInputLength,
			StructuredEnough:      cfg.Summarizer.StructuredEnough,
			StructuredTooShort:    cfg.Summarizer.StructuredTooShort,
			MaxModelInputLength:   cfg.Summarizer.MaxModelInputLength,
			ModelSummaryMinLength: cfg.Summarizer.ModelMinLength,
			ModelSummaryMaxLength: cfg.Summarizer.ModelMaxLength,
		}),
	)
	engine := processor.NewEngine(model, processor.WithRecorder(m))

	analyzeHandler := handler.NewAnalyzeHandler(extractor, summarizer, engine,
		handler.WithLogSaver(storageManager.LogSaver(func(sink string, _ error) { m.ObservePersistError(sink) })),
		handler.WithLogReader(storageManager.LogReader()),
		handler.WithSummaryCache(storageManager.SummaryCache()),
		handler.WithArchiver(storageManager.Archiver()),
		handler.WithObserver(m),
		handler.WithMaxConcurrency(cfg.Server.FileWorkers),
	)

	maxBody := cfg.Server.MaxUploadMB << 20
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(maxBody),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		logger.Ctx(c).Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP请求")
	})

	router.RegisterRoutes(h, analyzeHandler,
		router.WithAPIKeys(cfg.Server.APIKeys),
		router.WithHTTPObserver(m),
		router.WithMetricsHandler(m.Handler()),
		router.WithMaxFileBytes(int64(maxBody)),
	)
	logger.Info().Str("address", cfg.Server.Address).Bool("api_key", len(cfg.Server.APIKeys) > 0).Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("刷新链路数据失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// newExtractor PDF 先走 eino 解析器，配置了 Tika 时图片和扫描件走 OCR
func newExtractor(ctx context.Context, cfg *config.Config, obs ocr.Observer) (*ocr.Extractor, error) {
	pdfParser, err := ocr.NewPDFParser(ctx)
	if err != nil {
		return nil, err
	}
	opts := []ocr.Option{ocr.WithPDFParser(pdfParser), ocr.WithObserver(obs)}
	if cfg.Tika.ServerURL != "" {
		opts = append(opts, ocr.WithTika(ocr.NewTikaClient(cfg.Tika.ServerURL,
			ocr.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second),
			ocr.WithOCRLanguage(cfg.Tika.OCRLang),
		)))
		logger.Info().Str("tika", cfg.Tika.ServerURL).Msg("已启用 Tika OCR")
	} else {
		logger.Warn().Msg("未配置 Tika，图片文件将无法识别")
	}
	return ocr.NewExtractor(opts...), nil
}
