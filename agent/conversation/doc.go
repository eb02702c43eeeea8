// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 负责把会话历史组装为一次补全调用的提示序列。

# 概述

组装是纯粹的"读取后格式化"：输入人设指令、按创建顺序排列的历史与新的
用户轮次，输出 [人设, ...历史..., 新用户轮次]。组装器从不修改传入的历史，
也不做截断，截断由 llm.BudgetedProvider 在调用前完成。

# 主要能力

  - Build：新轮次的提示，首条消息时为 [人设, 新用户轮次]
  - BuildReplay：重试末尾未回答的用户轮次，不追加新的用户轮次
  - Transcript：把历史渲染为便于日志与调试的纯文本
*/
package conversation
