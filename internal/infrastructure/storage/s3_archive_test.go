package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/3btraders/ims/internal/infrastructure/config"
)

// fakeS3 accepts path-style PUT and HEAD requests and keeps objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func testConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:        true,
		Endpoint:       endpoint,
		Bucket:         "ims-reports",
		Region:         "us-east-1",
		AccessKey:      "test-key",
		SecretKey:      "test-secret",
		UsePathStyle:   true,
		PresignExpires: time.Hour,
	}
}

func TestNewS3ReportArchive_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3ReportArchive(ctx, nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3ReportArchive(ctx, &config.StorageConfig{})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3ReportArchive(ctx, &config.StorageConfig{Bucket: "b", AccessKey: "k"})
	assert.ErrorContains(t, err, "must be set together")

	a, err := NewS3ReportArchive(ctx, &config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "b", a.Bucket())
	assert.Equal(t, defaultPresignTTL, a.presignTTL)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "reports/1/IMS_Report_A_2025-01-01_to_2025-01-31.pdf",
		Key("1", "IMS_Report_A_2025-01-01_to_2025-01-31.pdf"))
	assert.Equal(t, "reports/unassigned/x.pdf", Key("", "../../x.pdf"))
}

func TestArchive(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	a, err := NewS3ReportArchive(ctx, testConfig(srv.URL), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	got, err := a.Archive(ctx, "1", "IMS_Report_Kigali_2025-01-01_to_2025-01-31.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "reports/1/IMS_Report_Kigali_2025-01-01_to_2025-01-31.pdf", got.Key)
	assert.True(t, strings.HasPrefix(got.URL, srv.URL+"/ims-reports/reports/1/"))
	assert.Contains(t, got.URL, "X-Amz-Signature=")
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)

	fake.mu.Lock()
	stored := fake.objects["/ims-reports/"+got.Key]
	contentType := fake.types["/ims-reports/"+got.Key]
	fake.mu.Unlock()
	assert.Equal(t, "%PDF-1.4", string(stored))
	assert.Equal(t, "application/pdf", contentType)

	ok, err := a.Exists(ctx, got.Key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Exists(ctx, "reports/1/missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.Archive(ctx, "1", "empty.pdf", nil)
	assert.Error(t, err)
}
