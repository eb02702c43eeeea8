// Package config 提供 AgentChat 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（AGENTCHAT_<SECTION>_<FIELD>）的顺序叠加，
// 在启动时加载一次，由 Validate 一次性报告全部问题。
package config
