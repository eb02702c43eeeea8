// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供会话消息与 Agent/Session 目录的持久化抽象及多后端实现。

# 概述

消息历史是会话回放的唯一事实来源：每个会话内的消息构成严格有序、
只追加的序列。序号在同一会话的追加之间原子分配，从 1 开始逐一递增；
不提供按 ID 更新或删除消息的操作，只允许整会话删除。

# 核心接口

  - Store: 所有存储的基础接口，提供 Close 和 Ping 健康检查。
  - MessageStore: Append / AppendPair / ListOrdered。AppendPair 在一个
    事务边界内写入 user 与 assistant 两条消息，二者序号相邻。
  - CatalogStore: Agent 与 Session 的增删改查，以及 ResolvePersona。
  - Repository: 同一后端同时实现以上接口，删除 Agent / Session 时级联删除消息。

# 后端实现

  - Memory: 内存实现，适合开发与测试，重启后数据丢失。
  - Database: 基于 GORM，支持 SQLite / PostgreSQL / MySQL，
    (session_id, sequence) 唯一索引兜底序号冲突。
  - Redis: 基于 go-redis，WATCH + MULTI/EXEC 分配序号并写入 Sorted Set。

# 错误约定

后端把驱动错误包装为 STORE_UNAVAILABLE；不存在的 Agent / Session 返回
AGENT_NOT_FOUND / SESSION_NOT_FOUND，且 errors.Is(err, ErrNotFound) 成立。

# 使用方式

	repo, err := persistence.NewRepository(cfg, db, rdb, logger)
	msg, err := repo.Append(ctx, sessionID, types.RoleUser, "Hello", "")
	history, err := repo.ListOrdered(ctx, sessionID)
*/
package persistence
