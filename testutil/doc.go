// Copyright 2026 AgentChat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentchat 测试的共享工具和辅助函数。

# 核心能力

  - TestContext: 带超时、随测试结束取消的上下文
  - 断言: AssertMessagesEqual / AssertStoredRoles / AssertErrorCode，基于 testify
  - WaitFor: 轮询等待异步条件

# 子包

  - testutil/mocks: MockProvider（LLM Provider）与 MockStore（消息存储），
    均支持 Builder 模式与错误注入
  - testutil/fixtures: 预置 Agent、会话历史、Completion 与 WAV 音频样例

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse("Ahoy!")
	store := mocks.NewMockStore().WithAppendPairError(err)
*/
package testutil
