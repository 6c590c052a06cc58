package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDFParser struct {
	content string
	err     error
	calls   int
}

func (f *fakePDFParser) Parse(ctx context.Context, reader io.Reader, opts ...einoParser.Option) ([]*schema.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	common := einoParser.GetCommonOptions(&einoParser.Options{}, opts...)
	return []*schema.Document{{ID: common.URI, Content: f.content}}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveOCR(kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, kind+":"+outcome)
}

// 模拟 Tika 服务器，返回固定文本并记录请求头
func newTikaServer(t *testing.T, body string, status int) (*httptest.Server, *http.Header) {
	t.Helper()
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tika" || r.Method != http.MethodPut {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		seen = r.Header.Clone()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindPDF, DetectKind("cv.PDF", nil))
	assert.Equal(t, KindImage, DetectKind("foto.jpeg", nil))
	assert.Equal(t, KindText, DetectKind("cv.txt", nil))
	assert.Equal(t, KindPDF, DetectKind("semextensao", []byte("%PDF-1.7\n...")))
	assert.Equal(t, KindImage, DetectKind("semextensao", []byte("\x89PNG\r\n\x1a\n0000")))
	assert.Equal(t, KindText, DetectKind("semextensao", []byte("texto simples")))
	assert.Equal(t, KindUnsupported, DetectKind("planilha.xlsx", nil))
	assert.Equal(t, KindUnsupported, DetectKind("binario", []byte{0x00, 0x01, 0x02, 0x03}))
}

func TestExtractText_EmptyFile(t *testing.T) {
	obs := &recordingObserver{}
	e := NewExtractor(WithObserver(obs))

	assert.Equal(t, "[ERRO OCR] arquivo vazio", e.ExtractText(context.Background(), "vazio.pdf", nil))
	assert.Equal(t, []string{"pdf:empty"}, obs.outcomes)
}

func TestExtractText_PlainText(t *testing.T) {
	e := NewExtractor()
	text := e.ExtractText(context.Background(), "cv.txt", []byte("\ufeffDesenvolvedor Python"))
	assert.Equal(t, "Desenvolvedor Python", text)

	// Latin-1
	latin := []byte{'G', 'e', 'r', 'e', 'n', 't', 'e', ' ', 'd', 'e', ' ', 'p', 'r', 'o', 'j', 'e', 't', 'o', 's', ' ', 'c', 0xe9, 'u'}
	assert.Equal(t, "Gerente de projetos céu", e.ExtractText(context.Background(), "cv.txt", latin))
}

func TestExtractText_PDFUsesEinoParser(t *testing.T) {
	p := &fakePDFParser{content: "Experiência profissional\nAnalista de dados"}
	obs := &recordingObserver{}
	e := NewExtractor(WithPDFParser(p), WithObserver(obs))

	text := e.ExtractText(context.Background(), "cv.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, "Experiência profissional\nAnalista de dados", text)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []string{"pdf:success"}, obs.outcomes)
}

func TestExtractText_ScannedPDFFallsBackToTika(t *testing.T) {
	srv, seen := newTikaServer(t, "texto reconhecido por OCR", http.StatusOK)
	p := &fakePDFParser{content: "   "}
	e := NewExtractor(WithPDFParser(p), WithTika(NewTikaClient(srv.URL)))

	text := e.ExtractText(context.Background(), "escaneado.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, "texto reconhecido por OCR", text)
	assert.Equal(t, "application/pdf", seen.Get("Content-Type"))
	assert.Equal(t, "text/plain", seen.Get("Accept"))
	assert.Equal(t, "escaneado.pdf", seen.Get("X-Tika-Resource-Name"))
}

func TestExtractText_PDFErrorWithoutTika(t *testing.T) {
	e := NewExtractor(WithPDFParser(&fakePDFParser{err: errors.New("corrompido")}))

	text := e.ExtractText(context.Background(), "ruim.pdf", []byte("%PDF-1.4"))
	assert.True(t, strings.HasPrefix(text, ErrorPrefix))
	assert.Contains(t, text, "corrompido")
}

func TestExtractText_ImageViaTika(t *testing.T) {
	srv, seen := newTikaServer(t, "Analista\n\nde   sistemas\n", http.StatusOK)
	e := NewExtractor(WithTika(NewTikaClient(srv.URL+"/", WithOCRLanguage("por+eng"))))

	png := []byte("\x89PNG\r\n\x1a\n0000")
	text := e.ExtractText(context.Background(), "cv.png", png)
	assert.Equal(t, "Analista de sistemas", text)
	assert.Equal(t, "image/png", seen.Get("Content-Type"))
	assert.Equal(t, "por+eng", seen.Get("X-Tika-OCRLanguage"))
}

func TestExtractText_ImageWithoutTika(t *testing.T) {
	obs := &recordingObserver{}
	e := NewExtractor(WithObserver(obs))

	text := e.ExtractText(context.Background(), "cv.jpg", []byte{0xff, 0xd8, 0xff})
	assert.True(t, strings.HasPrefix(text, ErrorPrefix))
	assert.Equal(t, []string{"image:failure"}, obs.outcomes)
}

func TestExtractText_TikaErrorStatus(t *testing.T) {
	srv, _ := newTikaServer(t, "erro", http.StatusUnprocessableEntity)
	e := NewExtractor(WithTika(NewTikaClient(srv.URL)))

	text := e.ExtractText(context.Background(), "cv.png", []byte("\x89PNG\r\n\x1a\n0000"))
	assert.Contains(t, text, "422")
}

func TestExtractText_NoTextFound(t *testing.T) {
	obs := &recordingObserver{}
	e := NewExtractor(WithObserver(obs))

	text := e.ExtractText(context.Background(), "branco.txt", []byte("  \n "))
	assert.Equal(t, ErrorPrefix+" nenhum texto encontrado em branco.txt", text)
	assert.Equal(t, []string{"text:no_text"}, obs.outcomes)
}

func TestNewTikaClient(t *testing.T) {
	c := NewTikaClient("http://tika:9998/", WithTimeout(5*time.Second))
	require.NotNil(t, c.Client)
	assert.Equal(t, "http://tika:9998", c.ServerURL)
	assert.Equal(t, 5*time.Second, c.Client.Timeout)
	assert.Equal(t, "por", c.ocrLang)
}
