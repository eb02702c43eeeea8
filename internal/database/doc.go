// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接与连接池管理，支持健康检查、
统计信息采集与事务重试。

# 概述

Open 按驱动名（sqlite / postgres / mysql）构建 Dialector 并创建
PoolManager。SQLite 使用纯 Go 的 glebarez/sqlite，并把连接数固定为 1。
后台健康检查定时探活，异常时通过 zap 日志输出诊断信息。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置与 Validate 校验。
  - TransactionFunc：事务回调函数类型。

# 事务

WithTransactionRetry 在死锁、序列化失败和唯一键冲突时指数退避重试，
消息存储用它兜底同一会话并发追加时的序号竞争。
*/
package database
