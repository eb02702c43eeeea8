// Copyright (c) AgentChat Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 AgentChat HTTP API 的请求处理器实现。

# 核心类型

  - AgentHandler     Agent 的增删改查与会话列表
  - SessionHandler   会话的创建、查询与删除
  - ChatHandler      会话历史、文本/语音轮次与失败轮次重试
  - ArtifactHandler  按消息记录的路径下载语音产物
  - HealthHandler    /health、/healthz、/ready、/version
  - Routes           把以上处理器注册到 http.ServeMux

# 响应格式

所有 JSON 响应使用 Response 信封。WriteErr 把 types.Error 的错误码
映射为 HTTP 状态码，其它错误一律返回 INTERNAL_ERROR 且不暴露细节。
语音上传走 multipart 字段 audio，格式依次取自文件名、分段 Content-Type
和表单字段 format。
*/
package handlers
