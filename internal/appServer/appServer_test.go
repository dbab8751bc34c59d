package appServer

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ds124wfegd/vton/config"
	"github.com/ds124wfegd/vton/internal/pkg/kafka"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0", Timeout: time.Minute},
		Replicate: config.ReplicateConfig{
			DefaultModel: config.ModelIDMVTON,
			Models:       config.ModelsConfig{IDMVTON: "a/b:1", OOTD: "c/d:2", CatVTON: "e/f:3"},
		},
		Images: config.ImageConfig{MaxDimension: 768, JPEGQuality: 85, FetchTimeout: time.Second},
	}
}

func TestNewHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(testConfig(), kafka.NewPublisher(nil, "vton-results"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["replicate_configured"])
}

func TestNewHandler_MissingImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(testConfig(), kafka.NewPublisher(nil, "vton-results"))

	req := httptest.NewRequest(http.MethodPost, "/api/vton/try-on",
		jsonBody(t, map[string]string{"person_image": "/missing/p.jpg", "garment_image": "/missing/g.jpg"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
