package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/storage"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newLocalStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost/files"}, discardLogger())
	require.NoError(t, err)
	return s
}

func TestImagingProcessor_Normalize(t *testing.T) {
	p := NewImagingProcessor()

	out, w, h, err := p.Normalize(bytes.NewReader(testJPEG(t, 400, 200)), 100)
	require.NoError(t, err)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	small, _, _, err := p.Normalize(bytes.NewReader(testJPEG(t, 40, 30)), 100)
	require.NoError(t, err)
	decoded, err = png.Decode(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())

	_, _, _, err = p.Normalize(strings.NewReader("not an image"), 100)
	assert.Error(t, err)
}

func TestPhotoService_Store(t *testing.T) {
	store := newLocalStorage(t)
	svc := NewPhotoService(store, NewImagingProcessor(), PhotoConfig{MaxDimension: 64}, discardLogger())
	recordID := uuid.New()

	stored, err := svc.Store(context.Background(), recordID, domain.PhotoTypeBefore, bytes.NewReader(testJPEG(t, 128, 64)), "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.Key, storage.RecordPrefix(recordID)+"before/"))
	assert.True(t, strings.HasSuffix(stored.Key, ".png"))
	assert.Equal(t, 128, stored.OriginalWidth)
	assert.Equal(t, "http://localhost/files/"+stored.Key, stored.URL)

	rc, info, err := store.Get(context.Background(), stored.Key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", info.ContentType)
	cfg, err := png.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestPhotoService_StoreErrors(t *testing.T) {
	svc := NewPhotoService(newLocalStorage(t), NewImagingProcessor(), PhotoConfig{MaxBytes: 1024}, discardLogger())
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name        string
		photoType   domain.PhotoType
		data        io.Reader
		contentType string
		code        string
	}{
		{"bad type", "later", strings.NewReader("x"), "image/png", domain.EINVALID},
		{"too large", domain.PhotoTypeAfter, bytes.NewReader(make([]byte, 2048)), "image/png", domain.ETOOLARGE},
		{"empty", domain.PhotoTypeAfter, strings.NewReader(""), "image/png", domain.EINVALID},
		{"unsupported", domain.PhotoTypeAfter, strings.NewReader("%PDF-1.4"), "application/pdf", domain.EUNSUPPORTED},
		{"undecodable", domain.PhotoTypeAfter, strings.NewReader("garbage"), "image/png", domain.EINVALID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Store(ctx, id, tt.photoType, tt.data, tt.contentType)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.ErrorCode(err))
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestPhotoService_ReadFailure(t *testing.T) {
	svc := NewPhotoService(newLocalStorage(t), NewImagingProcessor(), PhotoConfig{}, discardLogger())
	_, err := svc.Store(context.Background(), uuid.New(), domain.PhotoTypeDuring, failingReader{}, "image/png")
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestPhotoService_RemoveAndURL(t *testing.T) {
	store := newLocalStorage(t)
	svc := NewPhotoService(store, NewImagingProcessor(), PhotoConfig{}, discardLogger())
	ctx := context.Background()

	stored, err := svc.Store(ctx, uuid.New(), domain.PhotoTypeAfter, bytes.NewReader(testJPEG(t, 10, 10)), "")
	require.NoError(t, err)

	url, err := svc.URL(ctx, stored.Key)
	require.NoError(t, err)
	assert.Equal(t, stored.URL, url)

	_, err = svc.URL(ctx, "../secret")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	svc.Remove(ctx, []string{stored.Key, "../ignored"})
	exists, err := store.Exists(ctx, stored.Key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPhotoKeys(t *testing.T) {
	r := domain.NewInjuryRecord(domain.NewInjuryRecordParams{Photos: []string{"client-ref"}}, testNow())
	own := storage.PhotoKey(r.ID, "during", "")
	r.Photos.During = append(r.Photos.During, domain.Photo{ImageData: own, Type: domain.PhotoTypeDuring})
	r.Photos.After = append(r.Photos.After, domain.Photo{ImageData: storage.PhotoKey(uuid.New(), "after", ""), Type: domain.PhotoTypeAfter})

	assert.Equal(t, []string{own}, PhotoKeys(r))
}
