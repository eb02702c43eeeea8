package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/BaSui01/agentchat/types"
)

// MapHTTPError 上游非 2xx 响应 → 类型化错误
//
//	429           PROVIDER_RATE_LIMITED      可重试
//	408 / 5xx     PROVIDER_UNAVAILABLE       可重试
//	401 / 403     PROVIDER_UNAVAILABLE       不可重试（凭证问题）
//	其他 4xx      PROVIDER_INVALID_RESPONSE  不可重试
func MapHTTPError(status int, msg string, provider string) *types.Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	msg = provider + ": " + msg

	switch {
	case status == http.StatusTooManyRequests:
		return types.NewProviderRateLimitedError(provider, msg)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return types.NewProviderUnavailableError(provider, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewProviderUnavailableError(provider, msg).WithRetryable(false)
	}
	return types.NewProviderInvalidResponseError(provider, msg).WithRetryable(false)
}

// MapTransportError 网络层错误一律转成 PROVIDER_UNAVAILABLE，原始错误只作为 cause。
// 调用方取消不重试；已是 *types.Error 的原样返回。
func MapTransportError(err error, provider string) *types.Error {
	if err == nil {
		return nil
	}
	if te, ok := types.AsError(err); ok {
		return te
	}

	reason, retryable := "transport failure", true
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		reason, retryable = "request canceled", false
	case errors.Is(err, context.DeadlineExceeded):
		reason = "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = "network timeout"
	}
	return types.NewProviderUnavailableError(provider, provider+": "+reason).
		WithRetryable(retryable).
		WithCause(err)
}

// InvalidResponse 2xx 但内容不可用（解码失败、没有候选、空音频）
func InvalidResponse(provider, msg string, cause error) *types.Error {
	e := types.NewProviderInvalidResponseError(provider, provider+": "+msg)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

const maxErrorBody = 64 << 10

// ReadErrorMessage 优先取 {"error":{"message","type"}}，否则返回截断后的原文
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return "failed to read error response"
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) != nil || envelope.Error.Message == "" {
		return strings.TrimSpace(string(data))
	}
	if envelope.Error.Type == "" {
		return envelope.Error.Message
	}
	return fmt.Sprintf("%s (type: %s)", envelope.Error.Message, envelope.Error.Type)
}
