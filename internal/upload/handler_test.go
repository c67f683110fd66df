package upload

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umedia/cdn-service/internal/testutil"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	svc, _ := newTestService(t)
	r := chi.NewRouter()
	r.Post("/api/upload/{service}/{category}", NewHandler(svc).Upload)
	return r
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, r chi.Router, url, apiKey, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, data)
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", contentType)
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUploadSuccess(t *testing.T) {
	r := newTestRouter(t)
	raw := testutil.JPEG(t, testutil.Gradient(300, 200), 90)

	rec := doUpload(t, r, "/api/upload/svc-a/photo", "k1", "pic.jpg", raw)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status bool   `json:"status"`
		URL    string `json:"url"`
		Size   int    `json:"size"`
		File   string `json:"file"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Status)
	assert.Contains(t, resp.URL, "https://cdn.example/svc-a/svc-a/")
	assert.Greater(t, resp.Size, 0)
	assert.NotEmpty(t, resp.File)
}

func TestUploadMissingAPIKey(t *testing.T) {
	r := newTestRouter(t)

	rec := doUpload(t, r, "/api/upload/svc-a/photo", "", "pic.jpg", []byte("x"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"status":false,"error":"API key required"}`, rec.Body.String())
}

func TestUploadTenantEnumerationNotPossible(t *testing.T) {
	// Wrong key for a real tenant and any key for an unknown tenant must
	// produce identical responses.
	r := newTestRouter(t)

	wrongKey := doUpload(t, r, "/api/upload/svc-a/photo", "bad", "pic.jpg", []byte("x"))
	unknown := doUpload(t, r, "/api/upload/svc-b/photo", "bad", "pic.jpg", []byte("x"))

	require.Equal(t, http.StatusForbidden, wrongKey.Code)
	require.Equal(t, http.StatusForbidden, unknown.Code)
	assert.Equal(t, wrongKey.Body.String(), unknown.Body.String())
}

func TestUploadInvalidCategory(t *testing.T) {
	r := newTestRouter(t)

	rec := doUpload(t, r, "/api/upload/svc-a/video", "k1", "pic.jpg", []byte("x"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":false,"error":"invalid category"}`, rec.Body.String())
}

func TestUploadMissingFileField(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/svc-a/photo", nil)
	req.Header.Set("X-API-KEY", "k1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":false,"error":"file field required"}`, rec.Body.String())
}

func TestUploadPassthroughResponse(t *testing.T) {
	r := newTestRouter(t)
	raw := []byte("plain text payload")

	rec := doUpload(t, r, "/api/upload/svc-a/photo", "k1", "notes.txt", raw)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status bool   `json:"status"`
		Size   int    `json:"size"`
		File   string `json:"file"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Status)
	assert.Equal(t, len(raw), resp.Size)
	assert.Contains(t, resp.File, ".txt")
}
