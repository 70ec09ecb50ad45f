package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"retro/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type upload struct {
	path        string
	contentType string
	body        []byte
}

// s3Stub answers the handful of S3 calls the provider makes.
type s3Stub struct {
	mu      sync.Mutex
	bucket  string
	created bool
	uploads []upload
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucketPath := "/" + s.bucket
	path := r.URL.Path
	if path == bucketPath+"/" {
		path = bucketPath
	}
	switch {
	case r.Method == http.MethodHead && path == bucketPath:
		if !s.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && path == bucketPath:
		s.created = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && strings.HasPrefix(path, bucketPath+"/"):
		body, _ := io.ReadAll(r.Body)
		s.uploads = append(s.uploads, upload{
			path:        strings.TrimPrefix(path, bucketPath+"/"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		w.Header().Set("ETag", `"9b2cf535f27731c974343645a3985328"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newStubbedProvider(t *testing.T, stub *s3Stub) *MinioProvider {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	p, err := NewMinioProvider(&config.Config{
		MinioURL:      srv.URL,
		MinioUser:     "minioadmin",
		MinioPassword: "minioadmin",
		MinioBucket:   stub.bucket,
		MinioRegion:   "us-east-1",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func TestDisabledWithoutURL(t *testing.T) {
	p, err := NewMinioProvider(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestObjectName(t *testing.T) {
	at := time.Date(2025, time.March, 9, 23, 0, 0, 0, time.FixedZone("X", 3*3600))
	assert.Equal(t, "boards/2025/03/b1.json", ObjectName("b1", at))
}

func TestPingOnDisabledProvider(t *testing.T) {
	var p *MinioProvider
	assert.Error(t, p.Ping(context.Background()))
}

func TestEncodeArchive(t *testing.T) {
	at := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC)
	name, data, err := encodeArchive("b1", map[string]any{"title": "Retro", "cards": []string{"c1"}}, at)
	require.NoError(t, err)
	assert.Equal(t, "boards/2024/12/b1.json", name)
	assert.JSONEq(t, `{"title":"Retro","cards":["c1"]}`, string(data))

	_, _, err = encodeArchive("b1", math.NaN(), at)
	assert.Error(t, err)
}

func TestCreatesMissingBucket(t *testing.T) {
	stub := &s3Stub{bucket: "retro-archive"}
	p := newStubbedProvider(t, stub)

	stub.mu.Lock()
	created := stub.created
	stub.mu.Unlock()
	assert.True(t, created)
	assert.NoError(t, p.Ping(context.Background()))
}

func TestArchiveBoardUploadsSnapshot(t *testing.T) {
	stub := &s3Stub{bucket: "retro-archive", created: true}
	p := newStubbedProvider(t, stub)
	p.now = func() time.Time { return time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC) }

	snapshot := map[string]any{"board": map[string]string{"id": "b-42", "title": "Sprint 9"}}
	name, err := p.ArchiveBoard(context.Background(), "b-42", snapshot)
	require.NoError(t, err)
	assert.Equal(t, "boards/2025/06/b-42.json", name)

	want, err := json.Marshal(snapshot)
	require.NoError(t, err)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.uploads, 1)
	up := stub.uploads[0]
	assert.Equal(t, name, up.path)
	assert.Equal(t, "application/json", up.contentType)
	// Plain HTTP uploads are chunk-signed, so the payload sits inside framing.
	assert.True(t, bytes.Contains(up.body, want), "body %q", up.body)
}

func TestArchiveBoardReportsUploadFailure(t *testing.T) {
	stub := &s3Stub{bucket: "retro-archive", created: true}
	p := newStubbedProvider(t, stub)
	p.bucket = "other-bucket"

	_, err := p.ArchiveBoard(context.Background(), "b-42", map[string]string{"id": "b-42"})
	assert.Error(t, err)
}
