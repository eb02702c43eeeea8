// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 artifacts 保存对话中的音频产物：用户上传的语音与合成的回复语音。

# 概述

消息只通过不透明的路径引用音频产物。产物的生命周期独立于数据库记录，
删除会话不会清理其产物，孤立文件属于已知的非致命情况。

# 核心接口

  - Store：WriteAudio / ReadAudio，两种后端 FileStore（本地目录）
    与 S3Store（aws-sdk-go-v2，兼容 MinIO 等 S3 协议存储）
  - Manager：为产物生成唯一路径 <session-id>/<kind>-<counter>-<token>.<ext>，
    校验大小并计算校验和后写入 Store

# 路径规则

路径一律使用正斜杠的相对形式，CleanPath 拒绝绝对路径与 ".." 段，
因此同一路径在本地与 S3 后端之间可以互换。
*/
package artifacts
