package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"go.opentelemetry.io/otel/trace"

	"smart-resume-analyzer/internal/api/handler"
	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/tracing"
)

const (
	// APIKeyHeader 携带 API Key 的请求头
	APIKeyHeader = "X-API-Key"

	defaultMaxFileBytes = 20 << 20
)

// HTTPObserver 记录 HTTP 请求统计
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

type options struct {
	apiKeys        map[string]struct{}
	observer       HTTPObserver
	metricsHandler http.Handler
	maxFileBytes   int64
}

// Option 路由配置
type Option func(*options)

// WithAPIKeys 非空时 /analyze 与 /logs 需要 X-API-Key
func WithAPIKeys(keys []string) Option {
	return func(o *options) {
		for _, k := range keys {
			if k != "" {
				o.apiKeys[k] = struct{}{}
			}
		}
	}
}

// WithHTTPObserver 请求统计中间件
func WithHTTPObserver(obs HTTPObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithMetricsHandler 挂载到 /metrics 的 net/http 处理器
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metricsHandler = h }
}

// WithMaxFileBytes 单个上传文件的大小上限
func WithMaxFileBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFileBytes = n
		}
	}
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, analyzeHandler *handler.AnalyzeHandler, opts ...Option) {
	o := &options{apiKeys: make(map[string]struct{}), maxFileBytes: defaultMaxFileBytes}
	for _, opt := range opts {
		opt(o)
	}

	h.Use(observeMiddleware(o.observer))

	h.GET("/", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"message": "Smart Resume Analyzer API is running"})
	})
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
	if o.metricsHandler != nil {
		h.GET("/metrics", adaptor.HertzHandler(o.metricsHandler))
	}

	api := h.Group("")
	if len(o.apiKeys) > 0 {
		api.Use(apiKeyMiddleware(o.apiKeys))
	}

	analyze := func(c context.Context, ctx *app.RequestContext) {
		handleAnalyze(c, ctx, analyzeHandler, o.maxFileBytes)
	}
	api.POST("/analyze/", analyze)
	api.POST("/analyze", analyze)

	api.GET("/logs/:request_id", func(c context.Context, ctx *app.RequestContext) {
		logs, err := analyzeHandler.HandleGetLogs(c, ctx.Param("request_id"))
		switch {
		case errors.Is(err, handler.ErrLogsUnavailable):
			ctx.JSON(consts.StatusServiceUnavailable, utils.H{"detail": err.Error()})
		case errors.Is(err, handler.ErrInvalidRequestID):
			ctx.JSON(consts.StatusBadRequest, utils.H{"detail": err.Error()})
		case err != nil:
			logger.Ctx(c).Error().Err(err).Msg("查询分析记录失败")
			ctx.JSON(consts.StatusInternalServerError, utils.H{"detail": "erro ao consultar registros"})
		case len(logs) == 0:
			ctx.JSON(consts.StatusNotFound, utils.H{"detail": "nenhum registro encontrado"})
		default:
			ctx.JSON(consts.StatusOK, logs)
		}
	})
}

func handleAnalyze(c context.Context, ctx *app.RequestContext, analyzeHandler *handler.AnalyzeHandler, maxFileBytes int64) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"detail": "formulário multipart inválido"})
		return
	}

	files, err := readFiles(form.File["files"], maxFileBytes)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"detail": err.Error()})
		return
	}

	req := &handler.AnalyzeRequest{
		RequestID: string(ctx.FormValue("request_id")),
		UserID:    string(ctx.FormValue("user_id")),
		Query:     string(ctx.FormValue("query")),
		Files:     files,
	}

	resp, err := analyzeHandler.HandleAnalyze(c, req)
	if err != nil {
		var unsupported *handler.UnsupportedFileError
		switch {
		case errors.As(err, &unsupported):
			ctx.JSON(consts.StatusUnsupportedMediaType, utils.H{"detail": err.Error()})
		case errors.Is(err, handler.ErrNoFiles), errors.Is(err, handler.ErrInvalidRequestID), errors.Is(err, handler.ErrMissingUserID):
			ctx.JSON(consts.StatusBadRequest, utils.H{"detail": err.Error()})
		default:
			logger.Ctx(c).Error().Err(err).Msg("分析请求失败")
			ctx.JSON(consts.StatusInternalServerError, utils.H{"detail": "erro interno"})
		}
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// readFiles 读入全部上传文件，超出大小上限时返回错误
func readFiles(headers []*multipart.FileHeader, maxFileBytes int64) ([]handler.UploadedFile, error) {
	files := make([]handler.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxFileBytes {
			return nil, fmt.Errorf("arquivo %s excede o limite de %d bytes", fh.Filename, maxFileBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("falha ao abrir %s", fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxFileBytes+1))
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("falha ao ler %s", fh.Filename)
		}
		if int64(len(data)) > maxFileBytes {
			return nil, fmt.Errorf("arquivo %s excede o limite de %d bytes", fh.Filename, maxFileBytes)
		}
		files = append(files, handler.UploadedFile{Filename: fh.Filename, Data: data})
	}
	return files, nil
}

func apiKeyMiddleware(keys map[string]struct{}) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			if _, ok := keys[key]; ok {
				return true, nil
			}
			return false, errors.New("API key inválida")
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			logger.Ctx(c).Warn().Str("path", string(ctx.Path())).Msg("API key ausente ou inválida")
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"detail": "não autorizado"})
		}),
	)
}

// observeMiddleware 按状态码标记请求 span，obs 非空时记录请求统计
func observeMiddleware(obs HTTPObserver) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		status := ctx.Response.StatusCode()
		tracing.RecordHTTPStatus(trace.SpanFromContext(c), status, http.StatusText(status))
		if obs == nil {
			return
		}
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveHTTP(route, string(ctx.Method()), status, time.Since(start))
	}
}
