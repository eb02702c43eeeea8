package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-1")

	WriteSuccess(w, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, http.StatusCreated, map[string]string{"id": "a1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		code       types.ErrorCode
		wantStatus int
	}{
		{types.ErrUserInputEmpty, http.StatusBadRequest},
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrAgentNotFound, http.StatusNotFound},
		{types.ErrSessionNotFound, http.StatusNotFound},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrProviderRateLimited, http.StatusTooManyRequests},
		{types.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{types.ErrProviderInvalidResponse, http.StatusBadGateway},
		{types.ErrStoreUnavailable, http.StatusInternalServerError},
		{types.ErrInternalError, http.StatusInternalServerError},
		{types.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, types.NewError(tt.code, "boom"), zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.code), resp.Error.Code)
			assert.Equal(t, "boom", resp.Error.Message)
		})
	}
}

func TestWriteError_ExplicitStatusAndRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	err := types.NewProviderUnavailableError("openai", "upstream down")

	WriteError(w, err, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
}

func TestWriteErr(t *testing.T) {
	t.Run("typed error passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		wrapped := errors.Join(types.NewNotFoundError(types.ErrSessionNotFound, "session not found: s1"))
		WriteErr(w, wrapped, zap.NewNop())

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, string(types.ErrSessionNotFound), decodeResponse(t, w).Error.Code)
	})

	t.Run("plain error hides details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErr(w, errors.New("dial tcp 10.0.0.1: refused"), zap.NewNop())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, string(types.ErrInternalError), resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "10.0.0.1")
	})
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Content string `json:"content"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"content":"hi"}`, false},
		{"malformed", `{"content":`, true},
		{"unknown field", `{"content":"hi","extra":1}`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.body != "" {
				body = strings.NewReader(tt.body)
				r = httptest.NewRequest(http.MethodPost, "/", body)
			}
			w := httptest.NewRecorder()

			var dst payload
			err := DecodeJSONBody(w, r, &dst, zap.NewNop())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "hi", dst.Content)
		})
	}
}

func TestDecodeJSONBody_TooLarge(t *testing.T) {
	big := `{"content":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	w := httptest.NewRecorder()

	var dst struct {
		Content string `json:"content"`
	}
	err := DecodeJSONBody(w, r, &dst, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, dst.Content)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), resp.Error.Code)
}

func TestDecodeJSONBody_ContentType(t *testing.T) {
	tests := []struct {
		contentType string
		wantErr     bool
	}{
		{"", false},
		{"application/json", false},
		{"application/json; charset=utf-8", false},
		{"text/plain", true},
		{"application/json-ish", true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hi"}`))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			var dst struct {
				Content string `json:"content"`
			}
			err := DecodeJSONBody(w, r, &dst, zap.NewNop())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "hi", dst.Content)
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK) // 第二次调用被忽略
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusTeapot, rw.StatusCode)
	assert.Equal(t, int64(5), rw.Bytes)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Same(t, rec, rw.Unwrap())
}
