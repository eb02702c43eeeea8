// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的模型接入层：对话补全、语音转写与语音合成。

# 概述

不同服务商在接口、鉴权、错误语义上各不相同。本包把它们收敛为同一个
能力集合 [Provider]，进程启动时按配置选定一个变体并注入，之后调用方
不再关心具体是哪一家。

# 核心接口

  - [Provider]：Complete / Transcribe / Synthesize / Name
  - [CallRecorder]：调用指标记录接口，由 internal/metrics 实现

# 装饰器

  - [BudgetedProvider]：按 Token 预算裁剪历史，丢弃最旧的非 system 轮次，
    始终保留人设指令与最新用户轮次
  - [ResilientProvider]：对可重试的类型化错误做指数退避重试
  - [ObservedProvider]：为每次调用创建 OpenTelemetry span 并记录指标

# 错误语义

所有网络与服务商错误都以 *types.Error 返回，错误码为
PROVIDER_UNAVAILABLE、PROVIDER_RATE_LIMITED 或 PROVIDER_INVALID_RESPONSE，
调用方据此决定重试还是放弃。合成失败使用 SYNTHESIS_FAILED。
*/
package llm
