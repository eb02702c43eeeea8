package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// RequestIDHeader 请求 ID 头，由中间件写入响应头
const RequestIDHeader = "X-Request-ID"

// MaxJSONBodyBytes JSON 请求体上限，超出返回 413
const MaxJSONBodyBytes = 1 << 20

// =============================================================================
// 📦 响应信封
// =============================================================================

// Response 所有 JSON 接口的统一信封
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 失败信封中的错误
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable,omitempty"`
	HTTPStatus int    `json:"-"`
}

// WriteJSON 写出任意 JSON；头写出后编码失败无法补救，忽略之
func WriteJSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeEnvelope(w http.ResponseWriter, status int, data any, info *ErrorInfo) {
	WriteJSON(w, status, Response{
		Success:   info == nil,
		Data:      data,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// WriteSuccess 200 成功信封
func WriteSuccess(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, data, nil)
}

// WriteCreated 以指定状态码写成功信封（201 / 202）
func WriteCreated(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, data, nil)
}

// =============================================================================
// ❌ 错误
// =============================================================================

// codeStatus 错误未显式携带 HTTP 状态时的默认映射，未列出的为 500
var codeStatus = map[types.ErrorCode]int{
	types.ErrInvalidRequest:          http.StatusBadRequest,
	types.ErrUserInputEmpty:          http.StatusBadRequest,
	types.ErrAgentNotFound:           http.StatusNotFound,
	types.ErrSessionNotFound:         http.StatusNotFound,
	types.ErrArtifactNotFound:        http.StatusNotFound,
	types.ErrRateLimited:             http.StatusTooManyRequests,
	types.ErrProviderRateLimited:     http.StatusTooManyRequests,
	types.ErrProviderUnavailable:     http.StatusServiceUnavailable,
	types.ErrProviderInvalidResponse: http.StatusBadGateway,
}

func statusFor(err *types.Error) int {
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	if s, ok := codeStatus[err.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError 写失败信封。5xx 记 error 日志，其余 debug。
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := statusFor(err)

	if logger != nil {
		level := logger.Debug
		if status >= http.StatusInternalServerError {
			level = logger.Error
		}
		level("API error",
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Bool("retryable", err.Retryable),
			zap.NamedError("cause", err.Cause),
		)
	}

	writeEnvelope(w, status, nil, &ErrorInfo{
		Code:       string(err.Code),
		Message:    err.Message,
		Retryable:  err.Retryable,
		HTTPStatus: status,
	})
}

// WriteErr 非 types.Error 一律作为 INTERNAL_ERROR，细节只进日志
func WriteErr(w http.ResponseWriter, err error, logger *zap.Logger) {
	var te *types.Error
	if !errors.As(err, &te) {
		te = types.NewError(types.ErrInternalError, "internal error").WithCause(err)
	}
	WriteError(w, te, logger)
}

// WriteErrorMessage 以显式状态码写失败信封
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// =============================================================================
// 📥 请求解码
// =============================================================================

// DecodeJSONBody 严格解码（拒绝未知字段），失败时写出 400 并返回错误；
// 请求体超过 MaxJSONBodyBytes 时写出 413。
// 未带 Content-Type 的请求按 JSON 处理。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	fail := func(err *types.Error) error {
		WriteError(w, err, logger)
		return err
	}

	if !isJSONContent(r) {
		return fail(types.NewInvalidRequestError("Content-Type must be application/json"))
	}
	if r.Body == nil || r.Body == http.NoBody {
		return fail(types.NewInvalidRequestError("request body is empty"))
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fail(types.NewInvalidRequestError("request body too large").
				WithHTTPStatus(http.StatusRequestEntityTooLarge).WithCause(err))
		}
		return fail(types.NewInvalidRequestError("invalid JSON body").WithCause(err))
	}
	return nil
}

func isJSONContent(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}

// =============================================================================
// 📊 ResponseWriter
// =============================================================================

// ResponseWriter 记录状态码与写出字节数，供日志、指标与追踪中间件使用
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Bytes      int64
	Written    bool
}

// NewResponseWriter 状态码默认 200
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

// WriteHeader 只有第一次调用生效
func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.Written {
		return
	}
	rw.StatusCode, rw.Written = code, true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.WriteHeader(http.StatusOK)
	n, err := rw.ResponseWriter.Write(b)
	rw.Bytes += int64(n)
	return n, err
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
