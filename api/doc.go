// Package api 定义 AgentChat HTTP API 的请求与响应结构。
//
// # API 概览
//
// 所有业务接口挂在 /api/v1 下：
//   - Agent：POST/GET /agents，GET/PUT/DELETE /agents/{id}，GET /agents/{id}/sessions
//   - Session：POST /sessions，GET/DELETE /sessions/{id}
//   - 对话：GET /sessions/{id}/messages，POST /sessions/{id}/messages/text，
//     POST /sessions/{id}/messages/voice（multipart 字段 audio），
//     POST /sessions/{id}/messages/retry
//   - 语音产物：GET /artifacts/{path...}
//
// 运维接口：/health、/healthz、/ready、/version、/metrics。
//
// # 响应格式
//
// 成功与失败都使用 handlers.Response 信封：
//
//	{"success": false, "error": {"code": "SESSION_NOT_FOUND", "message": "...", "retryable": false}}
//
// 可重试的错误（PROVIDER_UNAVAILABLE、PROVIDER_RATE_LIMITED、
// PROVIDER_INVALID_RESPONSE）带 retryable=true。
package api
