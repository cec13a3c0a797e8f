package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"

	"caption-story-api/internal/application/pipeline"
	apperrors "caption-story-api/pkg/errors"
	"caption-story-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProcessor struct {
	resp      *pipeline.Response
	err       error
	calls     int
	gotUpload pipeline.ImageUpload
	gotPrompt string
}

func (f *fakeProcessor) Process(ctx context.Context, upload pipeline.ImageUpload, prompt string) (*pipeline.Response, error) {
	f.calls++
	f.gotUpload = upload
	f.gotPrompt = prompt
	return f.resp, f.err
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func newCaptionEngine(p Processor, maxBytes int64) *gin.Engine {
	r := gin.New()
	r.POST("/caption-image", NewCaptionHandler(p, maxBytes, "file").CaptionImage)
	return r
}

func doUpload(t *testing.T, r *gin.Engine, target, field, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, formType := multipartBody(t, field, "photo.jpg", contentType, data)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", formType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body["detail"]
}

func TestCaptionImageSuccess(t *testing.T) {
	p := &fakeProcessor{resp: &pipeline.Response{Caption: "a dog running on grass", Story: "Once there was a dog..."}}
	w := doUpload(t, newCaptionEngine(p, 1<<20), "/caption-image?prompt=make+it+sad", "file", "image/jpeg", []byte("jpegdata"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["caption"] != "a dog running on grass" || got["story"] != "Once there was a dog..." || len(got) != 2 {
		t.Fatalf("body = %v", got)
	}
	if p.gotPrompt != "make it sad" {
		t.Fatalf("prompt = %q", p.gotPrompt)
	}
	if string(p.gotUpload.Data) != "jpegdata" || p.gotUpload.MediaType != "image/jpeg" || p.gotUpload.Filename != "photo.jpg" {
		t.Fatalf("upload = %+v", p.gotUpload)
	}
}

func TestCaptionImageMapsPipelineErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{apperrors.New(apperrors.CodeInvalidInput, "Uploaded file must be an image"), http.StatusBadRequest, "Uploaded file must be an image"},
		{apperrors.New(apperrors.CodeModelLoading, "Model is currently loading. Please try again in a few seconds."), http.StatusServiceUnavailable, "Model is currently loading. Please try again in a few seconds."},
		{apperrors.New(apperrors.CodeTimeout, "Story generation timed out."), http.StatusGatewayTimeout, "Story generation timed out."},
		{apperrors.New(apperrors.CodeUpstreamError, "Error in image captioning: boom"), http.StatusInternalServerError, "Error in image captioning: boom"},
		{apperrors.New(apperrors.CodeBadUpstreamResponse, "Unexpected response from image captioning service"), http.StatusInternalServerError, "Unexpected response from image captioning service"},
		{errors.New("secret internals"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		p := &fakeProcessor{err: tc.err}
		w := doUpload(t, newCaptionEngine(p, 1<<20), "/caption-image", "file", "image/png", []byte("x"))
		if w.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
		}
		if got := detailOf(t, w); got != tc.detail {
			t.Fatalf("%v: detail = %q, want %q", tc.err, got, tc.detail)
		}
	}
}

func TestCaptionImagePassesDeclaredMediaType(t *testing.T) {
	p := &fakeProcessor{err: apperrors.New(apperrors.CodeInvalidInput, "Uploaded file must be an image")}
	w := doUpload(t, newCaptionEngine(p, 1<<20), "/caption-image", "file", "text/plain", []byte("hello"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if p.gotUpload.MediaType != "text/plain" {
		t.Fatalf("media type = %q", p.gotUpload.MediaType)
	}
}

func TestCaptionImageMissingFile(t *testing.T) {
	p := &fakeProcessor{}
	w := doUpload(t, newCaptionEngine(p, 1<<20), "/caption-image", "image", "image/png", []byte("x"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if p.calls != 0 {
		t.Fatalf("processor invoked without a file")
	}
}

func TestCaptionImageNotMultipart(t *testing.T) {
	p := &fakeProcessor{}
	req := httptest.NewRequest(http.MethodPost, "/caption-image", bytes.NewBufferString(`{"image":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newCaptionEngine(p, 1<<20).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest || p.calls != 0 {
		t.Fatalf("status = %d calls = %d", w.Code, p.calls)
	}
}

func TestCaptionImageTooLarge(t *testing.T) {
	p := &fakeProcessor{}
	w := doUpload(t, newCaptionEngine(p, 16), "/caption-image", "file", "image/png", bytes.Repeat([]byte("x"), 1024))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if p.calls != 0 {
		t.Fatalf("processor invoked for oversized upload")
	}
}

func TestCaptionImageBodyExceedsReaderLimit(t *testing.T) {
	p := &fakeProcessor{}
	w := doUpload(t, newCaptionEngine(p, 1024), "/caption-image", "file", "image/png", bytes.Repeat([]byte("x"), multipartOverhead+200<<10))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if got := detailOf(t, w); got != "Uploaded file is too large" {
		t.Fatalf("detail = %q", got)
	}
	if p.calls != 0 {
		t.Fatalf("processor invoked for oversized body")
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { logger.InitWithWriter(io.Discard, "info", "json") })
	return &buf
}

func logLevels(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var levels []string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("log line is not json: %s", line)
		}
		levels = append(levels, entry.Level)
	}
	return levels
}

func TestCaptionImageLogsFailureOnceBySeverity(t *testing.T) {
	cases := []struct {
		err   error
		level string
	}{
		{apperrors.New(apperrors.CodeInvalidInput, "Uploaded file must be an image"), "WARN"},
		{apperrors.New(apperrors.CodeModelLoading, "Model is currently loading. Please try again in a few seconds."), "ERROR"},
		{apperrors.New(apperrors.CodeTimeout, "Story generation timed out."), "ERROR"},
	}
	for _, tc := range cases {
		buf := captureLogs(t)
		doUpload(t, newCaptionEngine(&fakeProcessor{err: tc.err}, 1<<20), "/caption-image", "file", "image/png", []byte("x"))

		levels := logLevels(t, buf)
		if len(levels) != 1 || levels[0] != tc.level {
			t.Fatalf("%v: log levels = %v, want [%s]", tc.err, levels, tc.level)
		}
	}
}

func TestCaptionImageLogsRejectedUploadAsWarning(t *testing.T) {
	buf := captureLogs(t)
	doUpload(t, newCaptionEngine(&fakeProcessor{}, 1<<20), "/caption-image", "image", "image/png", []byte("x"))

	if levels := logLevels(t, buf); len(levels) != 1 || levels[0] != "WARN" {
		t.Fatalf("log levels = %v, want [WARN]", levels)
	}
}
