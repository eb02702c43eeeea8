// Copyright (c) AgentChat Authors.
// Licensed under the MIT License.

/*
Package main 提供 AgentChat 服务端程序入口。

# 概述

cmd/agentchat 装配存储、LLM Provider、语音管线与轮次编排器，对外暴露
agent / session / 消息 / 产物的 HTTP API，并提供数据库迁移、健康检查和
版本查询子命令。配置来自 YAML 文件与 AGENTCHAT_ 前缀的环境变量。

# 核心类型

  - Server      — 主服务器，持有存储连接、HTTP 与 Metrics 两个 server.Manager
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、migrate（up/down/steps/status/version/info/force）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、OTelTracing、
    MetricsMiddleware、CORS、RateLimiter（基于 IP，返回 RATE_LIMITED）
  - 存储后端：memory / database（自动迁移）/ redis，由 store.type 选择
  - Metrics：metrics_port 为 0 时 /metrics 挂在 API 端口，否则独立监听
  - 优雅关闭：信号 → 关闭监听 → 停止后台任务 → 关闭存储 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
