// Copyright 2026 AgentChat Authors. All rights reserved.

/*
Package orchestrator 执行单个对话轮次。

一个轮次依次经过以下状态：

	received → preprocessed → history_assembled → completing → [synthesizing] → persisted
	                                                                        ↘ failed

文本轮次直接使用输入文本；语音轮次先经 voice.Pipeline 转写，回复再合成为语音。
重试轮次跳过预处理，为会话末尾未回答的用户消息补上回复。

同一会话的轮次通过 sessionlock 串行化，每个轮次在锁内重新读取历史，
因此并发请求看到的历史总是前一轮次完整写入后的结果。

Provider 调用与调用方的取消解耦，只受 Config.TurnTimeout 约束；
补全失败时用户消息仍会写入，会话停在"等待回复"状态。
*/
package orchestrator
