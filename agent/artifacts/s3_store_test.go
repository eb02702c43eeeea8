package artifacts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 是一个只支持 path-style PutObject / GetObject 的内存 S3
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		if _, ok := f.objects[key]; ok && r.Header.Get("If-None-Match") == "*" {
			writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.contentTypes[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", f.contentTypes[key])
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message></Error>`)
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "voice",
		Prefix:          "/artifacts/",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Store_WriteRead(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestS3Store(t)

	p, err := s.WriteAudio(ctx, []byte("mp3-bytes"), "s1/out-1-x.mp3")
	require.NoError(t, err)
	assert.Equal(t, "s1/out-1-x.mp3", p)

	fake.mu.Lock()
	assert.Equal(t, []byte("mp3-bytes"), fake.objects["voice/artifacts/s1/out-1-x.mp3"])
	assert.Equal(t, "audio/mpeg", fake.contentTypes["voice/artifacts/s1/out-1-x.mp3"])
	fake.mu.Unlock()

	data, err := s.ReadAudio(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)
}

func TestS3Store_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestS3Store(t)

	_, err := s.ReadAudio(ctx, "s1/missing.wav")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.WriteAudio(ctx, []byte("a"), "s1/a.wav")
	require.NoError(t, err)
	_, err = s.WriteAudio(ctx, []byte("b"), "s1/a.wav")
	assert.ErrorIs(t, err, ErrExists)

	_, err = s.WriteAudio(ctx, []byte("a"), "../a.wav")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	assert.Error(t, err)
}
