package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-resume-analyzer/internal/types"
)

func TestManager_CountsDecisionsAndSummaries(t *testing.T) {
	m := NewManager(WithRegistry(prometheus.NewRegistry()))

	m.ObserveDecision(types.SourceHeuristic, types.AnswerYes)
	m.ObserveDecision(types.SourceHeuristic, types.AnswerYes)
	m.ObserveDecision(types.SourceModel, types.AnswerNo)
	m.ObserveSummary("structured")
	m.ObserveModelCall("generate", "failure")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("heuristic", "Sim")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("model", "Não")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.summaries.WithLabelValues("structured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("generate", "failure")))
}

func TestManager_HTTPAndOCR(t *testing.T) {
	m := NewManager(WithNamespace("teste"))

	m.ObserveHTTP("/analyze/", "POST", 200, 150*time.Millisecond)
	m.ObserveOCR("pdf", "success", time.Second)
	m.ObserveFile("answer")
	m.ObservePersistError("mysql")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/analyze/", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ocrExtractions.WithLabelValues("pdf", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesAnalyzed.WithLabelValues("answer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistErrors.WithLabelValues("mysql")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ocrDuration))
}

func TestManager_HandlerExposesMetrics(t *testing.T) {
	m := NewManager()
	m.ObserveSummary("model")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `resume_analyzer_summaries_total{path="model"} 1`))
}

func TestManager_IndependentRegistries(t *testing.T) {
	// 两个默认实例各自持有注册表，不应 panic
	assert.NotPanics(t, func() {
		NewManager()
		NewManager(WithRuntimeCollectors())
	})
}
