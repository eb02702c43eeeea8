// Package telemetry 装配 OpenTelemetry SDK，为 AgentChat 提供全局的
// TracerProvider 与 MeterProvider（OTLP gRPC 导出）。
// 关闭时保留 noop 实现，不连接任何外部服务。
package telemetry
