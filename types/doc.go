// Copyright (c) AgentChat Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentchat 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、agent、api 等上层模块
提供统一的类型契约，避免循环依赖。

# 核心类型

  - Agent / Session     — 人设与其下的会话
  - Message / Role      — 会话内严格有序、只追加的消息
  - Persona             — 会话解析出的人设指令
  - Error / ErrorCode   — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记

# 错误工具链

  - NewError / WithCause / WithHTTPStatus / WithRetryable / WithProvider
  - AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 常用构造：NewUserInputEmptyError / NewProviderUnavailableError / NewStoreUnavailableError 等
*/
package types
