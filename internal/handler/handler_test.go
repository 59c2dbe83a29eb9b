package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/aidnexus/internal/ai/mock"
	"github.com/DukeRupert/aidnexus/internal/geo"
	"github.com/DukeRupert/aidnexus/internal/middleware"
	"github.com/DukeRupert/aidnexus/internal/repository"
	"github.com/DukeRupert/aidnexus/internal/service"
	"github.com/DukeRupert/aidnexus/internal/session"
	"github.com/DukeRupert/aidnexus/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv is the full API stack backed by the mock model, a stub geocoder,
// in-memory persistence and local photo storage.
type testEnv struct {
	handler  http.Handler
	provider *mock.Provider
	geocoder *geo.Stub
	session  string
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	logger := discardLogger()

	provider := mock.New(logger)
	geocoder := geo.NewStub(nil)
	geocoder.ReverseAddress = "100 Main St, Austin, TX"

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost/files"}, logger)
	require.NoError(t, err)
	photos := service.NewPhotoService(store, service.NewImagingProcessor(), service.PhotoConfig{MaxBytes: maxUpload}, logger)

	persister := repository.NewMemory()
	registry := session.NewRegistry(persister, 0, logger)
	records := service.NewRecordService(registry, persister, photos, logger)
	assistant := service.NewAssistantService(provider, geocoder, logger)

	mux := http.NewServeMux()
	noLimit := func(next http.Handler) http.Handler { return next }
	NewAssistantHandler(assistant, records, maxUpload, logger).RegisterRoutes(mux, noLimit)
	NewRecordHandler(records, maxUpload, logger).RegisterRoutes(mux)

	return &testEnv{
		handler:  middleware.NewSessionMiddleware(logger, false).Handler(mux),
		provider: provider,
		geocoder: geocoder,
		session:  session.NewID(),
	}
}

// do sends a request in the env's session. A non-nil body is sent as JSON.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: e.session})
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart form with one file part.
func (e *testEnv) upload(t *testing.T, path, field, filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * y % 256), G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}
