// Package metrics 暴露分析服务的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smart-resume-analyzer/internal/types"
)

// Manager 持有全部指标，实现 processor.Recorder
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry
	runtime   bool

	decisions      *prometheus.CounterVec
	summaries      *prometheus.CounterVec
	modelCalls     *prometheus.CounterVec
	ocrExtractions *prometheus.CounterVec
	filesAnalyzed  *prometheus.CounterVec
	persistErrors  *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	ocrDuration         prometheus.Histogram
}

// Option 配置 Manager
type Option func(*Manager)

// WithNamespace 指标命名空间，默认 resume_analyzer
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithHistogramBuckets 耗时直方图的桶(秒)
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry 使用外部注册表，测试时避免重复注册
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithRuntimeCollectors 同时注册 Go 运行时和进程指标
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtime = true
	}
}

// NewManager 创建指标管理器，默认使用独立注册表
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "resume_analyzer",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runtime {
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.decisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "decisions_total",
		Help:      "Decisões por origem e resposta",
	}, []string{"source", "answer"})

	m.summaries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "summaries_total",
		Help:      "Resumos gerados por caminho",
	}, []string{"path"})

	m.modelCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "model_calls_total",
		Help:      "Chamadas ao modelo por operação e resultado",
	}, []string{"operation", "outcome"})

	m.ocrExtractions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ocr_extractions_total",
		Help:      "Extrações de texto por tipo de arquivo e resultado",
	}, []string{"kind", "outcome"})

	m.filesAnalyzed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "files_analyzed_total",
		Help:      "Arquivos analisados por modo",
	}, []string{"mode"})

	m.persistErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "persistence_errors_total",
		Help:      "Falhas ao gravar log, cache, arquivo ou evento",
	}, []string{"sink"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Requisições HTTP por rota, método e status",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duração das requisições HTTP",
		Buckets:   m.buckets,
	}, []string{"route", "method"})

	m.ocrDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "ocr_duration_seconds",
		Help:      "Duração da extração de texto por arquivo",
		Buckets:   m.buckets,
	})
}

// ObserveDecision 记录一次回答决策
func (m *Manager) ObserveDecision(source types.Source, answer types.Answer) {
	m.decisions.WithLabelValues(string(source), string(answer)).Inc()
}

// ObserveSummary 记录摘要走过的路径
func (m *Manager) ObserveSummary(path string) {
	m.summaries.WithLabelValues(path).Inc()
}

// ObserveModelCall 记录一次模型调用
func (m *Manager) ObserveModelCall(operation, outcome string) {
	m.modelCalls.WithLabelValues(operation, outcome).Inc()
}

// ObserveOCR 记录一次文本提取
func (m *Manager) ObserveOCR(kind, outcome string, elapsed time.Duration) {
	m.ocrExtractions.WithLabelValues(kind, outcome).Inc()
	m.ocrDuration.Observe(elapsed.Seconds())
}

// ObserveFile 记录一个已分析的文件，mode 为 summary 或 answer
func (m *Manager) ObserveFile(mode string) {
	m.filesAnalyzed.WithLabelValues(mode).Inc()
}

// ObservePersistError 记录一次持久化失败
func (m *Manager) ObservePersistError(sink string) {
	m.persistErrors.WithLabelValues(sink).Inc()
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Manager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry 返回底层注册表
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 的 http.Handler
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
