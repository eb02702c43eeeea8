// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 agents / sessions / messages 三张表的版本化 Schema，
支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌在二进制中，经 iofs 源驱动交给
golang-migrate 执行。SQLite 迁移走 mattn/go-sqlite3（需要 cgo），服务端读写仍用纯 Go 的 glebarez/sqlite。

# 核心类型

  - Migrator：Up/Down/Steps/Force/Version/Status/Info/Close 操作集。
  - DefaultMigrator：Migrator 的默认实现，ctx 结束时在当前迁移完成后停止。
  - CLI：migrate 子命令的终端输出层。

# 工厂函数

  - NewMigratorFromDatabaseConfig：从 config.DatabaseConfig 构建。
  - NewMigratorFromURL：从驱动名与连接 URL 构建。
*/
package migration
