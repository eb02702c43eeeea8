// Copyright 2026 AgentChat Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是各服务商变体的公共基础层：错误映射、配置结构与
OpenAI 兼容线协议类型。子包 openaicompat、openai、groq、gemini 依赖本包。

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为 PROVIDER_* 类型化错误（含 Retryable 标记）
  - MapTransportError — 将网络错误、超时映射为 PROVIDER_UNAVAILABLE
  - InvalidResponse — 解析失败或空回复
  - ReadErrorMessage — 从错误响应体中提取可读信息
*/
package providers
