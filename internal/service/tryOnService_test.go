package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/vton/config"
	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/ds124wfegd/vton/internal/pkg/imageprep"
	"github.com/ds124wfegd/vton/internal/pkg/inference"
	"github.com/ds124wfegd/vton/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	mu    sync.Mutex
	out   any
	err   error
	calls int
	model string
	input map[string]any
}

func (f *fakePredictor) Run(_ context.Context, model string, input map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.model = model
	f.input = input
	return f.out, f.err
}

type fakePublisher struct {
	events []entity.TryOnEvent
}

func (f *fakePublisher) Publish(_ context.Context, e entity.TryOnEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

var testReplicate = config.ReplicateConfig{
	APIToken:     "r8_test",
	DefaultModel: config.ModelIDMVTON,
	Models: config.ModelsConfig{
		IDMVTON: "cuuupid/idm-vton:v1",
		OOTD:    "viktorfa/oot_diffusion:v2",
		CatVTON: "zhengchong/cat-vton:v3",
	},
}

func newTestService(p inference.Predictor, pub *fakePublisher) TryOnService {
	normalizer := imageprep.NewNormalizer(768, 85, imageprep.NewHTTPFetcher(5*time.Second), storage.NewImageSource(""))
	return NewTryOnService(testReplicate, normalizer, inference.NewDispatcher(p), pub)
}

func TestTryOn_EndToEnd(t *testing.T) {
	personPath := writeJPEG(t, 2000, 3000)
	garment := encodeJPEG(t, 1600, 1200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(garment)
	}))
	defer srv.Close()

	p := &fakePredictor{out: "https://replicate.delivery/pbxt/result.png"}
	pub := &fakePublisher{}

	result := newTestService(p, pub).TryOn(context.Background(), entity.TryOnRequest{
		PersonImage:  personPath,
		GarmentImage: srv.URL + "/shirt.jpg",
		Category:     entity.CategoryUpperBody,
		DenoiseSteps: intPtr(30),
		RequestID:    "req-1",
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "https://replicate.delivery/pbxt/result.png", result.OutputURL)
	assert.Empty(t, result.Error)
	assert.Greater(t, result.ElapsedTime, 0.0)
	require.NotNil(t, result.InputSize)
	assert.GreaterOrEqual(t, result.InputSize.PersonKB, 0)
	assert.GreaterOrEqual(t, result.InputSize.GarmentKB, 0)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "cuuupid/idm-vton:v1", p.model)
	assert.Equal(t, "upper_body", p.input["category"])
	assert.Equal(t, 30, p.input["denoise_steps"])

	person := decodeDataURI(t, p.input["human_img"].(string))
	assert.Equal(t, 512, person.Bounds().Dx())
	assert.Equal(t, 768, person.Bounds().Dy())

	garm := decodeDataURI(t, p.input["garm_img"].(string))
	assert.Equal(t, 768, garm.Bounds().Dx())
	assert.Equal(t, 576, garm.Bounds().Dy())

	require.Len(t, pub.events, 1)
	assert.Equal(t, "req-1", pub.events[0].RequestID)
	assert.Equal(t, config.ModelIDMVTON, pub.events[0].Model)
	assert.True(t, pub.events[0].Success)
}

func TestTryOn_Defaults(t *testing.T) {
	p := &fakePredictor{out: []any{"https://a/out.png"}}
	pub := &fakePublisher{}

	result := newTestService(p, pub).TryOn(context.Background(), entity.TryOnRequest{
		PersonImage:  writeJPEG(t, 64, 64),
		GarmentImage: writeJPEG(t, 64, 64),
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "https://a/out.png", result.OutputURL)
	assert.Equal(t, "shirt", p.input["garment_des"])
	assert.Equal(t, "upper_body", p.input["category"])
	assert.Equal(t, 30, p.input["denoise_steps"])
	require.Len(t, pub.events, 1)
	assert.NotEmpty(t, pub.events[0].RequestID)
}

func TestTryOn_SelectsModel(t *testing.T) {
	p := &fakePredictor{out: "https://a/out.png"}

	result := newTestService(p, &fakePublisher{}).TryOn(context.Background(), entity.TryOnRequest{
		PersonImage:  writeJPEG(t, 64, 64),
		GarmentImage: writeJPEG(t, 64, 64),
		Category:     entity.CategoryDresses,
		DenoiseSteps: intPtr(12),
		Model:        config.ModelOOTD,
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "viktorfa/oot_diffusion:v2", p.model)
	assert.Equal(t, 2, p.input["category"])
	assert.Equal(t, 12, p.input["n_steps"])
	assert.Contains(t, p.input, "model_image")
}

func TestTryOn_Failures(t *testing.T) {
	quota := errors.New("Monthly spend limit reached. Please increase your limit.")

	tests := []struct {
		name      string
		req       func(t *testing.T) entity.TryOnRequest
		predErr   error
		wantCode  string
		wantError string
		wantCalls int
	}{
		{
			name: "missing local person image",
			req: func(t *testing.T) entity.TryOnRequest {
				return entity.TryOnRequest{
					PersonImage:  filepath.Join(t.TempDir(), "nobody.jpg"),
					GarmentImage: writeJPEG(t, 32, 32),
				}
			},
			wantCode:  entity.CodeNotFound,
			wantError: "not found",
		},
		{
			name: "malformed data uri",
			req: func(t *testing.T) entity.TryOnRequest {
				return entity.TryOnRequest{
					PersonImage:  writeJPEG(t, 32, 32),
					GarmentImage: "data:image/png;base64,%%%",
				}
			},
			wantCode:  entity.CodeDecode,
			wantError: "invalid data URI",
		},
		{
			name: "unknown model",
			req: func(t *testing.T) entity.TryOnRequest {
				return entity.TryOnRequest{
					PersonImage:  writeJPEG(t, 32, 32),
					GarmentImage: writeJPEG(t, 32, 32),
					Model:        "kolors",
				}
			},
			wantCode:  entity.CodeUnknownModel,
			wantError: "unknown model",
		},
		{
			name: "quota exceeded at the provider",
			req: func(t *testing.T) entity.TryOnRequest {
				return entity.TryOnRequest{
					PersonImage:  writeJPEG(t, 32, 32),
					GarmentImage: writeJPEG(t, 32, 32),
				}
			},
			predErr:   quota,
			wantCode:  entity.CodeRemoteInference,
			wantError: quota.Error(),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePredictor{out: "https://a/out.png", err: tt.predErr}
			pub := &fakePublisher{}

			result := newTestService(p, pub).TryOn(context.Background(), tt.req(t))

			assert.False(t, result.Success)
			assert.Empty(t, result.OutputURL)
			assert.Nil(t, result.InputSize)
			assert.Contains(t, result.Error, tt.wantError)
			assert.Equal(t, tt.wantCode, result.ErrorCode)
			assert.GreaterOrEqual(t, result.ElapsedTime, 0.0)
			assert.Equal(t, tt.wantCalls, p.calls)

			require.Len(t, pub.events, 1)
			assert.False(t, pub.events[0].Success)
			assert.Equal(t, tt.wantCode, pub.events[0].ErrorCode)
		})
	}
}

func TestTryOnService_Metadata(t *testing.T) {
	s := newTestService(&fakePredictor{}, &fakePublisher{})
	assert.True(t, s.ReplicateConfigured())
	assert.Equal(t, config.ModelIDMVTON, s.DefaultModel())
	assert.Equal(t, []string{"idm_vton", "ootd", "catvton"}, s.Models())
}

func writeJPEG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.jpg")
	require.NoError(t, os.WriteFile(path, encodeJPEG(t, w, h), 0644))
	return path
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func intPtr(v int) *int {
	return &v
}
