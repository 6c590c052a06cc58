package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"smart-resume-analyzer/internal/types"
)

const testRequestID = "0b3f5a2e-9d51-4c36-8f0e-1a2b3c4d5e6f"

type fakeExtractor struct{}

func (fakeExtractor) Supported(filename string, _ []byte) bool {
	return filename != "planilha.xlsx"
}

func (fakeExtractor) ExtractText(_ context.Context, _ string, data []byte) string {
	if len(data) == 0 {
		return "[ERRO OCR] arquivo vazio"
	}
	return string(data)
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSummarizer) Summarize(_ context.Context, text string) string {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return "resumo de " + text
}

type fakeAnswerer struct{}

func (fakeAnswerer) Answer(_ context.Context, resume, query string) types.Decision {
	if resume == "python" {
		return types.NewDecision(types.AnswerYes, "Experiência comprovada com Python.", types.SourceHeuristic)
	}
	return types.NewDecision(types.AnswerNo, "Sem menção à tecnologia pedida.", types.SourceFallback)
}

type fakeSaver struct {
	mu   sync.Mutex
	logs []types.AnalysisLog
	err  error
}

func (s *fakeSaver) SaveLog(_ context.Context, log types.AnalysisLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return s.err
}

func (s *fakeSaver) FindLogsByRequestID(_ context.Context, requestID string) ([]types.AnalysisLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AnalysisLog
	for _, l := range s.logs {
		if l.RequestID == requestID {
			out = append(out, l)
		}
	}
	return out, s.err
}

type memCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func (c *memCache) GetSummary(_ context.Context, text string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", false, c.err
	}
	v, ok := c.values[text]
	return v, ok, nil
}

func (c *memCache) SetSummary(_ context.Context, text, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.values[text] = summary
	return nil
}

type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchiver) ArchiveOriginal(_ context.Context, requestID, filename string, _ []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	key := requestID + "/" + filename
	a.keys = append(a.keys, key)
	return key, nil
}

type countingObserver struct {
	mu       sync.Mutex
	files    map[string]int
	failures []string
}

func (o *countingObserver) ObserveFile(mode string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[mode]++
}

func (o *countingObserver) ObservePersistError(sink string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, sink)
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
}

func TestHandleAnalyze_SummaryMode(t *testing.T) {
	saver := &fakeSaver{}
	obs := &countingObserver{files: map[string]int{}}
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{},
		WithLogSaver(saver), WithObserver(obs), WithClock(fixedClock))

	resp, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID,
		UserID:    "recrutador-1",
		Files: []UploadedFile{
			{Filename: "ana.txt", Data: []byte("ana")},
			{Filename: "vazio.pdf"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, AnalyzeResponse{
		"ana.txt":   {Summary: "resumo de ana"},
		"vazio.pdf": {Summary: "resumo de [ERRO OCR] arquivo vazio"},
	}, resp)
	assert.Equal(t, 2, obs.files[ModeSummary])

	require.Len(t, saver.logs, 1)
	log := saver.logs[0]
	assert.Equal(t, testRequestID, log.RequestID)
	assert.Equal(t, "recrutador-1", log.UserID)
	assert.Empty(t, log.Query)
	assert.Equal(t, time.UTC, log.Timestamp.Location())
	assert.True(t, fixedClock().Equal(log.Timestamp))
	assert.Equal(t, map[string]types.FileResult(resp), log.Resultado)
}

func TestHandleAnalyze_RequestSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{})

	ctx, span := tp.Tracer("test").Start(context.Background(), "POST /analyze/")
	_, err := h.HandleAnalyze(ctx, &AnalyzeRequest{
		RequestID: testRequestID,
		UserID:    "recrutador-1",
		Files:     []UploadedFile{{Filename: "ana.txt", Data: []byte("ana")}},
	})
	span.End()
	require.NoError(t, err)

	ctx, invalid := tp.Tracer("test").Start(context.Background(), "POST /analyze/")
	_, err = h.HandleAnalyze(ctx, &AnalyzeRequest{RequestID: "abc", UserID: "u", Files: []UploadedFile{{Filename: "a.txt"}}})
	invalid.End()
	require.ErrorIs(t, err, ErrInvalidRequestID)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	attrs := map[string]string{}
	for _, a := range spans[0].Attributes() {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, testRequestID, attrs["request.id"])
	assert.Equal(t, "re********-1", attrs["user.id"], "用户ID需掩码")

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	var errorType string
	for _, a := range spans[1].Attributes() {
		if a.Key == "error.type" {
			errorType = a.Value.AsString()
		}
	}
	assert.Equal(t, "validation", errorType)
}

func TestHandleAnalyze_AnswerMode(t *testing.T) {
	obs := &countingObserver{files: map[string]int{}}
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{}, WithObserver(obs))

	resp, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID,
		UserID:    "recrutador-1",
		Query:     "  Tem experiência com Python?  ",
		Files: []UploadedFile{
			{Filename: "ana.txt", Data: []byte("python")},
			{Filename: "bruno.txt", Data: []byte("java")},
		},
	})
	require.NoError(t, err)

	ana := resp["ana.txt"]
	assert.Equal(t, types.AnswerYes, ana.Answer)
	assert.Equal(t, "Experiência comprovada com Python.", ana.Justification)
	assert.Equal(t, "resumo de python", ana.ResumeSummary)
	assert.Empty(t, ana.Summary)

	assert.Equal(t, types.AnswerNo, resp["bruno.txt"].Answer)
	assert.Equal(t, 2, obs.files[ModeAnswer])
}

func TestHandleAnalyze_Validation(t *testing.T) {
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{})
	files := []UploadedFile{{Filename: "cv.txt", Data: []byte("x")}}

	tests := []struct {
		name string
		req  AnalyzeRequest
		want error
	}{
		{"sem arquivos", AnalyzeRequest{RequestID: testRequestID, UserID: "u"}, ErrNoFiles},
		{"request_id inválido", AnalyzeRequest{RequestID: "abc", UserID: "u", Files: files}, ErrInvalidRequestID},
		{"request_id vazio", AnalyzeRequest{UserID: "u", Files: files}, ErrInvalidRequestID},
		{"sem user_id", AnalyzeRequest{RequestID: testRequestID, UserID: "  ", Files: files}, ErrMissingUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.HandleAnalyze(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID, UserID: "u",
		Files: []UploadedFile{{Filename: "cv.txt", Data: []byte("x")}, {Filename: "planilha.xlsx", Data: []byte("x")}},
	})
	var unsupported *UnsupportedFileError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "planilha.xlsx", unsupported.Filename)
}

func TestHandleAnalyze_PersistenceFailureDoesNotChangeResponse(t *testing.T) {
	saver := &fakeSaver{err: errors.New("mysql: conexão recusada")}
	archiver := &fakeArchiver{err: errors.New("bucket inexistente")}
	obs := &countingObserver{files: map[string]int{}}
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{},
		WithLogSaver(saver), WithArchiver(archiver), WithObserver(obs))

	resp, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID, UserID: "u",
		Files: []UploadedFile{{Filename: "cv.txt", Data: []byte("cv")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "resumo de cv", resp["cv.txt"].Summary)
	assert.Equal(t, []string{"minio"}, obs.failures)
}

func TestHandleAnalyze_ArchivesOriginals(t *testing.T) {
	archiver := &fakeArchiver{}
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{}, WithArchiver(archiver))

	_, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID, UserID: "u",
		Files: []UploadedFile{{Filename: "cv.txt", Data: []byte("cv")}, {Filename: "vazio.txt"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{testRequestID + "/cv.txt"}, archiver.keys, "空文件不归档")
}

func TestHandleAnalyze_SummaryCache(t *testing.T) {
	cache := &memCache{values: map[string]string{"cv": "resumo em cache"}}
	summarizer := &fakeSummarizer{}
	h := NewAnalyzeHandler(fakeExtractor{}, summarizer, fakeAnswerer{}, WithSummaryCache(cache))

	req := func() *AnalyzeRequest {
		return &AnalyzeRequest{
			RequestID: testRequestID, UserID: "u",
			Files: []UploadedFile{{Filename: "a.txt", Data: []byte("cv")}, {Filename: "b.txt", Data: []byte("outro")}},
		}
	}

	resp, err := h.HandleAnalyze(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "resumo em cache", resp["a.txt"].Summary)
	assert.Equal(t, "resumo de outro", resp["b.txt"].Summary)
	assert.Equal(t, 1, summarizer.calls)
	assert.Equal(t, "resumo de outro", cache.values["outro"])

	_, err = h.HandleAnalyze(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, 1, summarizer.calls, "第二次请求应全部命中缓存")
}

func TestHandleAnalyze_CacheErrorFallsBackToSummarizer(t *testing.T) {
	cache := &memCache{values: map[string]string{}, err: errors.New("redis indisponível")}
	summarizer := &fakeSummarizer{}
	h := NewAnalyzeHandler(fakeExtractor{}, summarizer, fakeAnswerer{}, WithSummaryCache(cache))

	resp, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID, UserID: "u",
		Files: []UploadedFile{{Filename: "a.txt", Data: []byte("cv")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "resumo de cv", resp["a.txt"].Summary)
	assert.Equal(t, 1, summarizer.calls)
}

func TestHandleAnalyze_ManyFilesBoundedConcurrency(t *testing.T) {
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{}, WithMaxConcurrency(2))

	var files []UploadedFile
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt"} {
		files = append(files, UploadedFile{Filename: name, Data: []byte(name)})
	}
	resp, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{RequestID: testRequestID, UserID: "u", Files: files})
	require.NoError(t, err)
	assert.Len(t, resp, 5)
	assert.Equal(t, "resumo de 3.txt", resp["3.txt"].Summary)
}

func TestHandleGetLogs(t *testing.T) {
	saver := &fakeSaver{}
	h := NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{}, WithLogSaver(saver), WithLogReader(saver))

	_, err := h.HandleAnalyze(context.Background(), &AnalyzeRequest{
		RequestID: testRequestID, UserID: "u",
		Files: []UploadedFile{{Filename: "a.txt", Data: []byte("cv")}},
	})
	require.NoError(t, err)

	logs, err := h.HandleGetLogs(context.Background(), testRequestID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "resumo de cv", logs[0].Resultado["a.txt"].Summary)

	_, err = h.HandleGetLogs(context.Background(), "não-é-uuid")
	assert.ErrorIs(t, err, ErrInvalidRequestID)

	_, err = NewAnalyzeHandler(fakeExtractor{}, &fakeSummarizer{}, fakeAnswerer{}).HandleGetLogs(context.Background(), testRequestID)
	assert.ErrorIs(t, err, ErrLogsUnavailable)
}
