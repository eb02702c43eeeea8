// Package factory 提供 LLM Provider 的集中式工厂，
// 按名称选择变体并套上预算、重试与观测装饰器，
// 打破 llm 包与各 provider 子包之间的循环依赖。
package factory
