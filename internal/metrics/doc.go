// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、Provider 调用、
对话轮次与数据库连接池。

# 核心类型

  - Collector：指标收集器，持有独立的 prometheus.Registry（含 Go 运行时与进程指标），
    Handler() 直接挂到 /metrics。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - Provider 指标：按 provider/operation/status 计数与耗时，
    Collector 实现 llm.CallRecorder。
  - 轮次指标：按 mode/outcome 计数与耗时，Collector 实现 orchestrator.TurnRecorder。
  - 数据库指标：活跃/空闲连接数 Gauge。
*/
package metrics
